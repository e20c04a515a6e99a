package models

import (
	"fmt"
	"strings"
	"time"
)

// Fetch strategy constants
const (
	StrategyStatic   = "static"
	StrategyDynamic  = "dynamic"
	StrategyRSS      = "rss"
	StrategySnapshot = "snapshot"
	StrategyFaculty  = "faculty"
)

// Dimension constants form a closed set; catalog validation rejects others.
const (
	DimensionNationalPolicy    = "national_policy"
	DimensionBeijingPolicy     = "beijing_policy"
	DimensionTechnology        = "technology"
	DimensionTalent            = "talent"
	DimensionIndustry          = "industry"
	DimensionUniversities      = "universities"
	DimensionEvents            = "events"
	DimensionPersonnel         = "personnel"
	DimensionSentiment         = "sentiment"
	DimensionTwitter           = "twitter"
	DimensionUniversityFaculty = "university_faculty"
)

// ValidDimensions is the closed set of source dimensions
var ValidDimensions = map[string]bool{
	DimensionNationalPolicy:    true,
	DimensionBeijingPolicy:     true,
	DimensionTechnology:        true,
	DimensionTalent:            true,
	DimensionIndustry:          true,
	DimensionUniversities:      true,
	DimensionEvents:            true,
	DimensionPersonnel:         true,
	DimensionSentiment:         true,
	DimensionTwitter:           true,
	DimensionUniversityFaculty: true,
}

// Schedule constants (symbolic frequencies resolved by the scheduler)
const (
	Schedule2H      = "2h"
	Schedule4H      = "4h"
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

// ListSelectors configures list-page extraction for the static/dynamic strategies.
// Title "_self" means the list-item element's own text.
type ListSelectors struct {
	ListItem   string `yaml:"list_item" json:"list_item"`
	Title      string `yaml:"title" json:"title"`
	Link       string `yaml:"link" json:"link"`
	LinkAttr   string `yaml:"link_attr,omitempty" json:"link_attr,omitempty"` // default "href"
	Date       string `yaml:"date,omitempty" json:"date,omitempty"`
	DateFormat string `yaml:"date_format,omitempty" json:"date_format,omitempty"`
	DateRegex  string `yaml:"date_regex,omitempty" json:"date_regex,omitempty"`
}

// DetailSelectors configures detail-page extraction
type DetailSelectors struct {
	Content string `yaml:"content,omitempty" json:"content,omitempty"`
	Author  string `yaml:"author,omitempty" json:"author,omitempty"`
	// HeadingSections maps output field names to heading texts; the text
	// following the matched heading (until the next heading) becomes the value.
	HeadingSections map[string]string `yaml:"heading_sections,omitempty" json:"heading_sections,omitempty"`
	// LabelPrefixSections maps label prefixes to output field names for
	// lines of the form "Label: Value" or "Label：Value"
	LabelPrefixSections map[string]string `yaml:"label_prefix_sections,omitempty" json:"label_prefix_sections,omitempty"`
}

// FacultySelectors configures person-card extraction for the faculty strategy
type FacultySelectors struct {
	Card          string `yaml:"card" json:"card"`
	Name          string `yaml:"name" json:"name"`
	Position      string `yaml:"position,omitempty" json:"position,omitempty"`
	Bio           string `yaml:"bio,omitempty" json:"bio,omitempty"`
	Email         string `yaml:"email,omitempty" json:"email,omitempty"`
	Photo         string `yaml:"photo,omitempty" json:"photo,omitempty"`
	ResearchAreas string `yaml:"research_areas,omitempty" json:"research_areas,omitempty"`
	NextPage      string `yaml:"next_page,omitempty" json:"next_page,omitempty"`
}

// SourceDefinition is one declarative catalog entry. Definitions are
// immutable at runtime; the scheduler reloads the catalog on start.
type SourceDefinition struct {
	ID         string `yaml:"id" json:"id" validate:"required"`
	Name       string `yaml:"name" json:"name" validate:"required"`
	Dimension  string `yaml:"dimension,omitempty" json:"dimension"`
	Group      string `yaml:"group,omitempty" json:"group,omitempty"`
	URL        string `yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
	BaseURL    string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Strategy   string `yaml:"fetch_strategy,omitempty" json:"fetch_strategy,omitempty"`
	ParserKind string `yaml:"parser_kind,omitempty" json:"parser_kind,omitempty"`
	Schedule   string `yaml:"schedule,omitempty" json:"schedule,omitempty" validate:"omitempty,oneof=2h 4h daily weekly monthly"`
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Priority   int    `yaml:"priority,omitempty" json:"priority,omitempty"`

	ListSelectors    *ListSelectors    `yaml:"list_selectors,omitempty" json:"list_selectors,omitempty"`
	DetailSelectors  *DetailSelectors  `yaml:"detail_selectors,omitempty" json:"detail_selectors,omitempty"`
	FacultySelectors *FacultySelectors `yaml:"faculty_selectors,omitempty" json:"faculty_selectors,omitempty"`

	// WaitCondition is "load", "networkidle", or a CSS selector (dynamic only)
	WaitCondition      string            `yaml:"wait_condition,omitempty" json:"wait_condition,omitempty"`
	DetailViaPlainHTTP bool              `yaml:"detail_via_plain_http,omitempty" json:"detail_via_plain_http,omitempty"`
	KeywordFilter      []string          `yaml:"keyword_filter,omitempty" json:"keyword_filter,omitempty"`
	Tags               []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
	Headers            map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Encoding           string            `yaml:"encoding,omitempty" json:"encoding,omitempty"`
	VerifyTLS          *bool             `yaml:"verify_tls,omitempty" json:"verify_tls,omitempty"`
	RequestDelay       float64           `yaml:"request_delay_seconds,omitempty" json:"request_delay_seconds,omitempty"`

	// RSS strategy
	MaxEntries int `yaml:"max_entries,omitempty" json:"max_entries,omitempty"`

	// Snapshot strategy
	ContentArea    string   `yaml:"content_area,omitempty" json:"content_area,omitempty"`
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty" json:"ignore_patterns,omitempty"`

	// Faculty strategy
	MaxPages int `yaml:"max_pages,omitempty" json:"max_pages,omitempty"`

	// API parsers (parser_kind sources)
	SearchQuery         string   `yaml:"search_query,omitempty" json:"search_query,omitempty"`
	SortBy              string   `yaml:"sort_by,omitempty" json:"sort_by,omitempty"`
	MaxResults          int      `yaml:"max_results,omitempty" json:"max_results,omitempty"`
	TwitterQuery        string   `yaml:"twitter_query,omitempty" json:"twitter_query,omitempty"`
	TwitterQueryType    string   `yaml:"twitter_query_type,omitempty" json:"twitter_query_type,omitempty"`
	TwitterAccounts     []string `yaml:"twitter_accounts,omitempty" json:"twitter_accounts,omitempty"`
	MaxTweetsPerAccount int      `yaml:"max_tweets_per_account,omitempty" json:"max_tweets_per_account,omitempty"`
	MinLikes            int      `yaml:"min_likes,omitempty" json:"min_likes,omitempty"`
	FetchProfiles       *bool    `yaml:"fetch_profiles,omitempty" json:"fetch_profiles,omitempty"`
}

// TLSVerify reports whether certificate verification applies (default true)
func (s *SourceDefinition) TLSVerify() bool {
	if s.VerifyTLS == nil {
		return true
	}
	return *s.VerifyTLS
}

// RequestDelayDuration returns the per-source inter-request delay override
func (s *SourceDefinition) RequestDelayDuration() time.Duration {
	if s.RequestDelay <= 0 {
		return 0
	}
	return time.Duration(s.RequestDelay * float64(time.Second))
}

// Validate checks structural invariants beyond what struct tags express
func (s *SourceDefinition) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("source id is required")
	}
	if s.ParserKind == "" && strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("source %s: url is required", s.ID)
	}
	if s.Dimension != "" && !ValidDimensions[s.Dimension] {
		return fmt.Errorf("source %s: unknown dimension %q", s.ID, s.Dimension)
	}
	if s.ParserKind == "" {
		switch s.Strategy {
		case StrategyStatic, StrategyDynamic, StrategyRSS, StrategySnapshot, StrategyFaculty:
		case "":
			return fmt.Errorf("source %s: either fetch_strategy or parser_kind is required", s.ID)
		default:
			return fmt.Errorf("source %s: unknown fetch_strategy %q", s.ID, s.Strategy)
		}
	}
	if s.Strategy == StrategySnapshot && s.ParserKind == "" && s.ContentArea == "" {
		return fmt.Errorf("source %s: snapshot strategy requires content_area", s.ID)
	}
	return nil
}

// NormalizedBaseURL returns BaseURL with a guaranteed trailing slash so that
// relative links resolve below the base rather than beside it. Falls back to
// the source URL when no base is configured.
func (s *SourceDefinition) NormalizedBaseURL() string {
	base := s.BaseURL
	if base == "" {
		base = s.URL
	}
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// Catalog is one per-dimension YAML file. The dimension key is inherited by
// sources that do not declare their own (twitter.yaml mixes dimensions).
type Catalog struct {
	Dimension            string             `yaml:"dimension"`
	DefaultKeywordFilter []string           `yaml:"default_keyword_filter,omitempty"`
	Sources              []SourceDefinition `yaml:"sources"`
}
