package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// savedCookie is the on-disk form of a jar cookie. The jar only reports name
// and value, so that is all a restart gets back.
type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// cookieStore mirrors the jar's cookies for the API origin into a file so a
// restarted client keeps its session.
type cookieStore struct {
	mu   sync.Mutex
	path string
	base *url.URL
	jar  http.CookieJar
}

func newCookieStore(path, base string) (*cookieStore, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("apiclient: cookie jar: %w", err)
	}
	s := &cookieStore{path: path, base: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, jar: jar}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *cookieStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("apiclient: read cookies: %w", err)
	}
	var saved []savedCookie
	if err := sonic.Unmarshal(data, &saved); err != nil {
		// A corrupt file only costs a fresh login.
		return nil
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		if c.Name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	s.jar.SetCookies(s.base, cookies)
	return nil
}

// save writes the jar's current cookies for the origin. An empty jar removes
// the file.
func (s *cookieStore) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cookies := s.jar.Cookies(s.base)
	if len(cookies) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("apiclient: remove cookies: %w", err)
		}
		return nil
	}
	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value})
	}
	payload, err := sonic.Marshal(saved)
	if err != nil {
		return fmt.Errorf("apiclient: encode cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("apiclient: mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0600); err != nil {
		return fmt.Errorf("apiclient: write cookies: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("apiclient: rename cookies: %w", err)
	}
	return nil
}
