package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the scraper's secrets in the OS keychain.
const KeyringService = "jobscout"

func GetProxyPassword(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}

	return "", errors.New("proxy password not found (set it in the keychain)")
}

func SetProxyPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteProxyPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

// ProxyKeyringAccount derives the account name from the proxy settings when
// none is configured.
func ProxyKeyringAccount(configured, username, proxyURL string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	host := proxyURL
	if u, err := url.Parse(proxyURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("jobscout:proxy:%s@%s", username, host)
}
