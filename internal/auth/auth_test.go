package auth

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==============================================
// OTP TESTS
// ==============================================

func TestGenerateOTP_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^[1-9][0-9]{5}$`)

	for i := 0; i < 500; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestCompareOTP(t *testing.T) {
	assert.True(t, CompareOTP("123456", "123456"))
	assert.False(t, CompareOTP("123456", "123457"))
	assert.False(t, CompareOTP("123456", "12345"))
	assert.False(t, CompareOTP("123456", ""))
}

// ==============================================
// PHONE TESTS
// ==============================================

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "digits only", input: "96891234567", want: "96891234567"},
		{name: "leading plus", input: "+96891234567", want: "96891234567"},
		{name: "formatted", input: "+968 (9123) 45-67", want: "96891234567"},
		{name: "surrounding space", input: "  2348012345678 ", want: "2348012345678"},
		{name: "empty", input: "", wantErr: true},
		{name: "letters", input: "+9689abc4567", wantErr: true},
		{name: "too short", input: "12345", wantErr: true},
		{name: "too long", input: "1234567890123456", wantErr: true},
		{name: "plus in middle", input: "968+91234567", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*******4567", MaskPhone("96891234567"))
	assert.Equal(t, "****", MaskPhone("123"))
	assert.NotContains(t, MaskPhone("96891234567"), "9689")
}

// ==============================================
// JWT TESTS
// ==============================================

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "test-issuer", time.Hour)

	token, expiresIn, err := issuer.GenerateJWT("user-1", "96891234567")
	require.NoError(t, err)
	assert.Equal(t, 3600, expiresIn)

	claims, err := issuer.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "96891234567", claims.Phone)
	assert.Equal(t, "test-issuer", claims.Issuer)
}

func TestTokenIssuer_DefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "", 0)

	_, expiresIn, err := issuer.GenerateJWT("user-1", "96891234567")
	require.NoError(t, err)
	assert.Equal(t, int(TokenExpirationTime.Seconds()), expiresIn)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "test-issuer", time.Minute)
	base := time.Now()
	issuer.now = func() time.Time { return base }

	token, _, err := issuer.GenerateJWT("user-1", "96891234567")
	require.NoError(t, err)

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = issuer.ValidateJWT(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("secret-a", "iss", time.Hour).GenerateJWT("user-1", "96891234567")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", "iss", time.Hour).ValidateJWT(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenIssuer_WrongIssuer(t *testing.T) {
	token, _, err := NewTokenIssuer("secret", "someone-else", time.Hour).GenerateJWT("user-1", "96891234567")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", "iss", time.Hour).ValidateJWT(token)
	assert.Error(t, err)
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		Phone: "96891234567",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", "", time.Hour).ValidateJWT(unsigned)
	assert.Error(t, err)
}

func TestTokenIssuer_Garbage(t *testing.T) {
	_, err := NewTokenIssuer("secret", "", time.Hour).ValidateJWT(strings.Repeat("x", 20))
	assert.Error(t, err)
}
