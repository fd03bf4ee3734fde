package scraper

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Expires  float64 `json:"expirationDate,omitempty"`
}

func (c Cookie) httpCookie() *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if c.Expires > 0 {
		cookie.Expires = time.Unix(int64(c.Expires), 0)
	}
	return cookie
}

// ParseCookieString reads a `name=value; name2=value2` header value.
func ParseCookieString(raw, domain string) []Cookie {
	cookies := make([]Cookie, 0)
	for _, part := range strings.Split(raw, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			continue
		}
		cookies = append(cookies, Cookie{Name: name, Value: strings.TrimSpace(value), Domain: domain, Path: "/"})
	}
	return cookies
}

// ParseCookieText accepts a JSON cookie list, Netscape cookies.txt content or
// a plain cookie header string.
func ParseCookieText(raw, domain string) ([]Cookie, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("no cookies provided")
	}

	if strings.HasPrefix(trimmed, "# Netscape") || strings.Contains(trimmed, "\t") {
		cookies := parseNetscape(trimmed)
		if len(cookies) == 0 {
			return nil, fmt.Errorf("no cookies found in netscape text")
		}
		return cookies, nil
	}

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		index := strings.Index(trimmed, "[")
		if index < 0 {
			return nil, fmt.Errorf("cookie json must be a list")
		}
		var cookies []Cookie
		if err := json.Unmarshal([]byte(trimmed[index:]), &cookies); err != nil {
			return nil, fmt.Errorf("parse cookie json: %w", err)
		}
		return NormalizeCookies(cookies, domain), nil
	}

	cookies := ParseCookieString(trimmed, domain)
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies found in cookie string")
	}
	return cookies, nil
}

func parseNetscape(raw string) []Cookie {
	cookies := make([]Cookie, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			line = strings.TrimPrefix(line, "#HttpOnly_")
			httpOnly = true
		}
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 6 {
			continue
		}
		cookie := Cookie{
			Domain:   parts[0],
			Path:     parts[2],
			Secure:   strings.EqualFold(parts[3], "TRUE"),
			Name:     parts[5],
			HTTPOnly: httpOnly,
		}
		if expires, err := strconv.ParseFloat(parts[4], 64); err == nil {
			cookie.Expires = expires
		}
		if len(parts) > 6 {
			cookie.Value = strings.TrimSpace(parts[6])
		}
		if cookie.Name != "" {
			cookies = append(cookies, cookie)
		}
	}
	return cookies
}

// NormalizeCookies drops entries without name and fills the default domain.
func NormalizeCookies(cookies []Cookie, domain string) []Cookie {
	normalized := make([]Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		cookie.Name = strings.TrimSpace(cookie.Name)
		if cookie.Name == "" {
			continue
		}
		if cookie.Domain == "" {
			cookie.Domain = domain
		}
		if cookie.Path == "" {
			cookie.Path = "/"
		}
		normalized = append(normalized, cookie)
	}
	return normalized
}

func SaveCookies(path string, cookies []Cookie) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cookies dir: %w", err)
	}
	content, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}
	return nil
}

// LoadCookies returns nil without error when the file does not exist.
func LoadCookies(path string) ([]Cookie, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	var cookies []Cookie
	if err := json.Unmarshal(content, &cookies); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}
	return cookies, nil
}
