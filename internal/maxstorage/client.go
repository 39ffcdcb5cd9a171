package maxstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/maxstorage/maxstorage-bridge/internal/models"
)

const (
	loginEndpoint = "home.php"
	dataEndpoint  = "shared/energycontrolfunctions.php"

	liveDataParam   = "getFullSwarmLiveDataJSON"
	deviceInfoParam = "getDeviceDataJSON"

	// The web service invalidates the session cookie after ten minutes.
	sessionLifetime = 10 * time.Minute
)

var (
	ErrAuthenticationFailed = errors.New("maxstorage: authentication failed")
	ErrNotJSON              = errors.New("maxstorage: response not in JSON format")
)

type Client interface {
	Setup() error
	GetData() (Snapshot, error)
	DeviceInfo() models.DeviceInfo
	Close()
}

type client struct {
	httpClient   *http.Client
	loginURL     string
	dataURL      string
	username     string
	password     string
	lastAuthTime time.Time
	deviceInfo   models.DeviceInfo
}

func NewClient(config models.MaxStorageConfig) Client {
	jar, _ := cookiejar.New(nil)
	return &client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
		loginURL: fmt.Sprintf("http://%s/%s", config.Host, loginEndpoint),
		dataURL:  fmt.Sprintf("http://%s/%s", config.Host, dataEndpoint),
		username: config.Username,
		password: config.Password,
	}
}

// Setup authenticates and loads the static device information block. The
// Ident field is what every entity identifier hangs off, so a payload
// without one is treated as a failed setup.
func (c *client) Setup() error {
	if err := c.authenticate(); err != nil {
		return err
	}
	resp, err := c.httpClient.PostForm(c.dataURL, url.Values{deviceInfoParam: {"1"}})
	if err != nil {
		return fmt.Errorf("maxstorage: error fetching device info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("maxstorage: unexpected status %v fetching device info", resp.StatusCode)
	}
	if err = json.NewDecoder(resp.Body).Decode(&c.deviceInfo); err != nil {
		return ErrNotJSON
	}
	if c.deviceInfo.Ident == "" {
		return errors.New("maxstorage: device info is missing Ident")
	}
	return nil
}

func (c *client) authenticate() error {
	form := url.Values{
		"username": {c.username},
		"password": {c.password},
	}
	resp, err := c.httpClient.PostForm(c.loginURL, form)
	if err != nil {
		return fmt.Errorf("maxstorage: error reaching %s: %w", c.loginURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("Authentication with MaxStorage failed, got status %v", resp.StatusCode)
		return ErrAuthenticationFailed
	}
	c.lastAuthTime = time.Now()
	return nil
}

func (c *client) isSessionValid() bool {
	return !c.lastAuthTime.IsZero() && time.Since(c.lastAuthTime) < sessionLifetime
}

// GetData fetches the current live-data snapshot, re-authenticating first if
// the session has expired. Only the coordinator's poll goroutine calls this.
func (c *client) GetData() (Snapshot, error) {
	if !c.isSessionValid() {
		if err := c.authenticate(); err != nil {
			return nil, err
		}
	}
	resp, err := c.httpClient.PostForm(c.dataURL, url.Values{liveDataParam: {"1"}})
	if err != nil {
		return nil, fmt.Errorf("maxstorage: error fetching live data: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("maxstorage: unexpected status %v fetching live data", resp.StatusCode)
	}
	var snapshot Snapshot
	if err = json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, ErrNotJSON
	}
	return snapshot, nil
}

func (c *client) DeviceInfo() models.DeviceInfo {
	return c.deviceInfo
}

func (c *client) Close() {
	c.lastAuthTime = time.Time{}
}
