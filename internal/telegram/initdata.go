package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxInitDataAge is the fixed freshness window for the signed auth payload
const maxInitDataAge = 86400 * time.Second

var (
	// ErrBadSignature means the payload hash does not match the bot token
	ErrBadSignature = errors.New("init data signature mismatch")
	// ErrStaleAuth means auth_date is older than the freshness window
	ErrStaleAuth = errors.New("init data is stale")
	// ErrMalformed means the payload is not a valid init data string
	ErrMalformed = errors.New("init data is malformed")
)

// InitData is the verified content of a Mini App signed payload
type InitData struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
	PhotoURL   string
	AuthDate   time.Time
}

type initDataUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// ValidateInitData verifies a Telegram Mini App initData blob against the bot
// token. The signature chain is HMAC-SHA256("WebAppData", token) over the
// sorted data-check-string; auth_date must be within the freshness window.
func ValidateInitData(initData, botToken string, now time.Time) (*InitData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrMalformed)
	}
	values.Del("hash")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, ErrBadSignature
	}

	authUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad auth_date", ErrMalformed)
	}
	authDate := time.Unix(authUnix, 0)
	if now.Sub(authDate) > maxInitDataAge {
		return nil, ErrStaleAuth
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return nil, fmt.Errorf("%w: missing user", ErrMalformed)
	}
	var user initDataUser
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("%w: bad user payload", ErrMalformed)
	}

	return &InitData{
		TelegramID: user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Username:   user.Username,
		PhotoURL:   user.PhotoURL,
		AuthDate:   authDate,
	}, nil
}
