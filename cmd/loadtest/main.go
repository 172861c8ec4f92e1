// Command loadtest fires simultaneous OTP requests for one phone at a running
// server. Issuance is atomic per phone, so exactly one request should get a 200
// and the rest a 429.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type options struct {
	BaseURL     string        `mapstructure:"url"`
	Phone       string        `mapstructure:"phone"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type result struct {
	status   int // 0 means the request never got an answer
	duration time.Duration
	err      error
}

func loadOptions() (*options, error) {
	flags := pflag.NewFlagSet("loadtest", pflag.ExitOnError)
	flags.String("url", "http://localhost:8080", "server base URL")
	flags.String("phone", "", "phone number to request codes for (required)")
	flags.Int("concurrency", 20, "number of simultaneous requests")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	_ = flags.Parse(os.Args[1:])

	v := viper.New()
	v.SetEnvPrefix("LOADTEST")
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}

	var opts options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, err
	}
	if opts.Phone == "" {
		return nil, fmt.Errorf("--phone (or LOADTEST_PHONE) is required")
	}
	if opts.Concurrency < 2 {
		return nil, fmt.Errorf("--concurrency must be at least 2")
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &opts, nil
}

func requestOTP(client *http.Client, url, phone string) result {
	body, _ := json.Marshal(map[string]string{"phone": phone})
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return result{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return result{err: err, duration: time.Since(start)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return result{status: resp.StatusCode, duration: time.Since(start)}
}

func main() {
	opts, err := loadOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        opts.Concurrency,
			MaxIdleConnsPerHost: opts.Concurrency,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	url := opts.BaseURL + "/api/v1/auth/otp/request"

	fmt.Printf("Firing %d simultaneous OTP requests at %s\n", opts.Concurrency, url)

	results := make([]result, opts.Concurrency)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = requestOTP(client, url, opts.Phone)
		}(i)
	}

	began := time.Now()
	close(start)
	wg.Wait()
	elapsed := time.Since(began)

	histogram := map[int]int{}
	var slowest time.Duration
	for _, r := range results {
		if r.err != nil {
			fmt.Printf("connection error: %v\n", r.err)
		}
		histogram[r.status]++
		if r.duration > slowest {
			slowest = r.duration
		}
	}

	statuses := make([]int, 0, len(histogram))
	for status := range histogram {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)

	fmt.Println(strings.Repeat("=", 40))
	for _, status := range statuses {
		label := http.StatusText(status)
		if status == 0 {
			label = "no response"
		}
		fmt.Printf("%3d %-22s %d\n", status, label, histogram[status])
	}
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("elapsed %v, slowest %v\n", elapsed.Round(time.Millisecond), slowest.Round(time.Millisecond))

	if histogram[http.StatusOK] != 1 {
		fmt.Printf("FAIL: expected exactly one 200, got %d\n", histogram[http.StatusOK])
		os.Exit(1)
	}
	fmt.Println("OK: exactly one code issued")
}
