package scraper

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds the selectors of the scraped site. Every field has a
// default, so a YAML file only needs the values that differ.
type SiteConfig struct {
	BaseURL      string `yaml:"base_url"`
	CookieDomain string `yaml:"cookie_domain"`
	UserAgent    string `yaml:"user_agent"`
	Search       struct {
		Path      string `yaml:"path"`
		Param     string `yaml:"param"`
		Input     string `yaml:"input"`
		Container string `yaml:"container"`
		Result    string `yaml:"result"`
		Link      string `yaml:"link"`
		Title     string `yaml:"title"`
		Year      string `yaml:"year"`
	} `yaml:"search"`
	Episodes struct {
		Item       string `yaml:"item"`
		Link       string `yaml:"link"`
		MovieTitle string `yaml:"movie_title"`
	} `yaml:"episodes"`
	Links struct {
		Rows     string `yaml:"rows"`
		Link     string `yaml:"link"`
		MinCells int    `yaml:"min_cells"`
	} `yaml:"links"`
	Login struct {
		LogoutHref string `yaml:"logout_href"`
		LogoutText string `yaml:"logout_text"`
		UserMarker string `yaml:"user_marker"`
	} `yaml:"login"`
}

func DefaultSiteConfig() SiteConfig {
	var cfg SiteConfig
	cfg.normalize()
	return cfg
}

// LoadSiteConfig reads path over the defaults. An empty or missing path
// yields the defaults.
func LoadSiteConfig(path string) (SiteConfig, error) {
	cfg := SiteConfig{}
	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		content, err := os.ReadFile(trimmed)
		if err != nil && !os.IsNotExist(err) {
			return SiteConfig{}, fmt.Errorf("read site config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return SiteConfig{}, fmt.Errorf("parse site config: %w", err)
			}
		}
	}
	cfg.normalize()
	return cfg, nil
}

func (c *SiteConfig) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	setDefault(&c.BaseURL, "https://filman.cc")
	setDefault(&c.CookieDomain, ".filman.cc")
	setDefault(&c.UserAgent, "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	setDefault(&c.Search.Path, "/wyszukiwarka")
	setDefault(&c.Search.Param, "phrase")
	setDefault(&c.Search.Input, "input[name='phrase']")
	setDefault(&c.Search.Container, "#advanced-search")
	setDefault(&c.Search.Result, ".poster")
	setDefault(&c.Search.Link, "a.img-responsive")
	setDefault(&c.Search.Title, ".film_title")
	setDefault(&c.Search.Year, ".film_year")

	setDefault(&c.Episodes.Item, "#episode-list ul li")
	setDefault(&c.Episodes.Link, "a")
	setDefault(&c.Episodes.MovieTitle, "h1, .film-title, .page-title")

	setDefault(&c.Links.Rows, "#links tbody tr")
	setDefault(&c.Links.Link, "td.link-to-video a[data-iframe]")
	if c.Links.MinCells <= 0 {
		c.Links.MinCells = 3
	}

	setDefault(&c.Login.LogoutHref, "wyloguj")
	setDefault(&c.Login.LogoutText, "Wyloguj")
	setDefault(&c.Login.UserMarker, ".user-menu, .user-panel, .user-info, .user-name")
}

func setDefault(target *string, fallback string) {
	if strings.TrimSpace(*target) == "" {
		*target = fallback
	}
}
