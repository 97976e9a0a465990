package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"
)

const testToken = "123456:test-bot-token"

// signInitData builds a signed initData query string the way the Telegram
// client does
func signInitData(token string, fields map[string]string) string {
	pairs := make([]string, 0, len(fields))
	for key, value := range fields {
		pairs = append(pairs, key+"="+value)
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(token))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	hash := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	values.Set("hash", hash)
	return values.Encode()
}

func TestValidateInitData(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	raw := signInitData(testToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Add(-time.Minute).Unix()),
		"user":      `{"id":42,"first_name":"Ivan","last_name":"Petrov","username":"ivan_barman","photo_url":"https://t.me/p.jpg"}`,
		"query_id":  "AAE42",
	})

	data, err := ValidateInitData(raw, testToken, now)
	if err != nil {
		t.Fatalf("ValidateInitData: %v", err)
	}
	if data.TelegramID != 42 {
		t.Errorf("TelegramID = %d, want 42", data.TelegramID)
	}
	if data.Username != "ivan_barman" || data.FirstName != "Ivan" || data.LastName != "Petrov" {
		t.Errorf("profile fields wrong: %+v", data)
	}
	if data.PhotoURL != "https://t.me/p.jpg" {
		t.Errorf("PhotoURL = %q", data.PhotoURL)
	}
}

func TestValidateInitDataBadSignature(t *testing.T) {
	now := time.Now()
	raw := signInitData("other-token", map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()),
		"user":      `{"id":42,"first_name":"Ivan"}`,
	})

	if _, err := ValidateInitData(raw, testToken, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestValidateInitDataTampered(t *testing.T) {
	now := time.Now()
	raw := signInitData(testToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()),
		"user":      `{"id":42,"first_name":"Ivan"}`,
	})
	tampered := strings.Replace(raw, "42", "43", 1)

	if _, err := ValidateInitData(tampered, testToken, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestValidateInitDataStale(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	raw := signInitData(testToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Add(-25*time.Hour).Unix()),
		"user":      `{"id":42,"first_name":"Ivan"}`,
	})

	if _, err := ValidateInitData(raw, testToken, now); !errors.Is(err, ErrStaleAuth) {
		t.Fatalf("err = %v, want ErrStaleAuth", err)
	}
}

func TestValidateInitDataMalformed(t *testing.T) {
	now := time.Now()

	cases := map[string]string{
		"no hash": "auth_date=1&user=%7B%7D",
		"missing user": signInitData(testToken, map[string]string{
			"auth_date": fmt.Sprintf("%d", now.Unix()),
		}),
		"bad auth_date": signInitData(testToken, map[string]string{
			"auth_date": "yesterday",
			"user":      `{"id":42}`,
		}),
	}

	for name, raw := range cases {
		if _, err := ValidateInitData(raw, testToken, now); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: err = %v, want ErrMalformed", name, err)
		}
	}
}
