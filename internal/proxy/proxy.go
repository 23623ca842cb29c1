package proxy

import (
	"math/rand"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/williampepple1/legis-harvester/internal/config"
)

// Manager handles proxy configuration and rotation
type Manager struct {
	Config *config.ProxyConfig
}

// NewManager creates a new proxy manager
func NewManager(config *config.ProxyConfig) *Manager {
	return &Manager{
		Config: config,
	}
}

// GetProxyURL returns a proxy URL from the configuration, nil when disabled
func (m *Manager) GetProxyURL() (*url.URL, error) {
	if m == nil || m.Config == nil || !m.Config.Enabled || len(m.Config.List) == 0 {
		return nil, nil
	}

	proxyStr := m.Config.List[0]
	if m.Config.Rotate && len(m.Config.List) > 1 {
		proxyStr = m.Config.List[rand.Intn(len(m.Config.List))]
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, err
	}

	if m.Config.Auth.Username != "" && m.Config.Auth.Password != "" {
		proxyURL.User = url.UserPassword(m.Config.Auth.Username, m.Config.Auth.Password)
	}

	return proxyURL, nil
}

// ApplyToClient routes a resty client through the selected proxy
func (m *Manager) ApplyToClient(client *resty.Client) (string, error) {
	proxyURL, err := m.GetProxyURL()
	if err != nil {
		return "", err
	}

	if proxyURL != nil {
		client.SetProxy(proxyURL.String())
		return proxyURL.Redacted(), nil
	}

	return "", nil
}

// BrowserServer returns the proxy address for the browser's --proxy-server
// flag. Chrome ignores credentials in that flag, so they are dropped.
func (m *Manager) BrowserServer() (string, error) {
	proxyURL, err := m.GetProxyURL()
	if err != nil || proxyURL == nil {
		return "", err
	}
	proxyURL.User = nil
	return proxyURL.String(), nil
}
