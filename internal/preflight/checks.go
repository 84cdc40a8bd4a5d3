package preflight

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/robfig/cron/v3"

	"sumup/internal/config"
	"sumup/internal/services"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	cfg *config.Config
}

// NewChecker creates a new preflight checker
func NewChecker(cfg *config.Config) *Checker {
	return &Checker{cfg: cfg}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkCredentials(),
		c.checkSchedules(),
		c.checkPromptsFile(),
		c.checkSiteDir(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkCredentials verifies the upstream and generation credentials are set
func (c *Checker) checkCredentials() CheckResult {
	missing := c.cfg.MissingCredentials()
	if len(missing) > 0 {
		return CheckResult{
			Name:    "Credentials",
			Status:  "fail",
			Message: fmt.Sprintf("Missing environment variables: %s", strings.Join(missing, ", ")),
		}
	}

	return CheckResult{
		Name:    "Credentials",
		Status:  "pass",
		Message: fmt.Sprintf("Bluesky account %s, OpenAI key %s", c.cfg.BlueskyAccount, config.Mask(c.cfg.OpenAIKey)),
	}
}

// checkSchedules validates refresh and clear schedules
func (c *Checker) checkSchedules() CheckResult {
	if c.cfg.SessionRefreshInterval <= 0 {
		return CheckResult{
			Name:    "Schedules",
			Status:  "fail",
			Message: fmt.Sprintf("SESSION_REFRESH_INTERVAL must be positive, got %v", c.cfg.SessionRefreshInterval),
		}
	}

	if c.cfg.CacheClearCron != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.cfg.CacheClearCron); err != nil {
			return CheckResult{
				Name:    "Schedules",
				Status:  "fail",
				Message: fmt.Sprintf("Invalid CACHE_CLEAR_CRON %q", c.cfg.CacheClearCron),
				Error:   err,
			}
		}
		return CheckResult{
			Name:    "Schedules",
			Status:  "pass",
			Message: fmt.Sprintf("Session refresh every %v, cache clear on %q", c.cfg.SessionRefreshInterval, c.cfg.CacheClearCron),
		}
	}

	if c.cfg.CacheClearInterval <= 0 {
		return CheckResult{
			Name:    "Schedules",
			Status:  "fail",
			Message: fmt.Sprintf("CACHE_CLEAR_INTERVAL must be positive, got %v", c.cfg.CacheClearInterval),
		}
	}

	return CheckResult{
		Name:    "Schedules",
		Status:  "pass",
		Message: fmt.Sprintf("Session refresh every %v, cache clear every %v", c.cfg.SessionRefreshInterval, c.cfg.CacheClearInterval),
	}
}

// checkPromptsFile validates the optional prompt template override
func (c *Checker) checkPromptsFile() CheckResult {
	if c.cfg.PromptsFile == "" {
		return CheckResult{
			Name:    "Prompts",
			Status:  "pass",
			Message: "Using built-in prompt templates",
		}
	}

	data, err := os.ReadFile(c.cfg.PromptsFile)
	if err != nil {
		return CheckResult{
			Name:    "Prompts",
			Status:  "fail",
			Message: fmt.Sprintf("Cannot read %s", c.cfg.PromptsFile),
			Error:   err,
		}
	}

	set, err := services.ParsePromptSet(data)
	if err != nil {
		return CheckResult{
			Name:    "Prompts",
			Status:  "fail",
			Message: fmt.Sprintf("Invalid prompt templates in %s", c.cfg.PromptsFile),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Prompts",
		Status:  "pass",
		Message: fmt.Sprintf("Loaded templates %v from %s", set.Types(), c.cfg.PromptsFile),
	}
}

// checkSiteDir verifies the frontend directory exists
func (c *Checker) checkSiteDir() CheckResult {
	info, err := os.Stat(c.cfg.SiteDir)
	if err != nil || !info.IsDir() {
		return CheckResult{
			Name:    "Static Site",
			Status:  "warning",
			Message: fmt.Sprintf("Directory %s not found, frontend will not be served", c.cfg.SiteDir),
		}
	}

	return CheckResult{
		Name:    "Static Site",
		Status:  "pass",
		Message: fmt.Sprintf("Serving frontend from %s", c.cfg.SiteDir),
	}
}
