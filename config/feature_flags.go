package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the progression engine.
// Supports gradual rollout, per-student overrides, and cohort targeting,
// so a new badge family or ranking tweak can be trialled on one cohort
// before every student sees it.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	studentOverrides map[string]map[string]bool // studentID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Students are assigned based on hash of their ID
	RolloutPercent int

	// Cohort targeting (e.g., "2026-spring", "2026-fall")
	// Empty means all cohorts
	TargetCohorts []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	StudentID string
	Cohort    string // Student cohort (e.g., "2026-spring")
	IsAdmin   bool
}

// Predefined feature flag names.
const (
	// === Profile Features ===
	FeatureProfileCache       = "profile.cache"        // Redis-backed profile cache
	FeatureProfileStreakAlive = "profile.streak_alive" // Streak freshness indicator

	// === Badge Features ===
	FeatureBadgesAutoEvaluate = "badges.auto_evaluate" // evaluate on every recorded event
	FeatureBadgesStreakFamily = "badges.streak_family" // streak-based badges
	FeatureBadgesCountFamily  = "badges.count_family"  // activity-count badges

	// === Ranking Features ===
	FeatureRankingsMedals  = "rankings.medals"  // medal glyphs on top positions
	FeatureRankingsWindows = "rankings.windows" // time-window leaderboards

	// === Gate Features ===
	FeatureUnlockGate = "gate.unlock" // belt+points content gating

	// === Infrastructure ===
	FeatureRedisEventBus = "infra.redis_event_bus" // cross-instance event fanout
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		studentOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureProfileCache] = &Feature{
		Name:           FeatureProfileCache,
		Description:    "Cache aggregated profiles in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProfileStreakAlive] = &Feature{
		Name:           FeatureProfileStreakAlive,
		Description:    "Expose streak freshness on profiles",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBadgesAutoEvaluate] = &Feature{
		Name:           FeatureBadgesAutoEvaluate,
		Description:    "Evaluate badges after each recorded point event",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBadgesStreakFamily] = &Feature{
		Name:           FeatureBadgesStreakFamily,
		Description:    "Streak-based badges",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBadgesCountFamily] = &Feature{
		Name:           FeatureBadgesCountFamily,
		Description:    "Activity-count badges",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureRankingsMedals] = &Feature{
		Name:           FeatureRankingsMedals,
		Description:    "Medal glyphs for top three positions",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureRankingsWindows] = &Feature{
		Name:           FeatureRankingsWindows,
		Description:    "Time-window subject leaderboards",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureUnlockGate] = &Feature{
		Name:           FeatureUnlockGate,
		Description:    "Belt and points based content gating",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureRedisEventBus] = &Feature{
		Name:           FeatureRedisEventBus,
		Description:    "Fan events out across instances via Redis Pub/Sub",
		Enabled:        false,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment applies FEATURE_* environment overrides.
// FEATURE_BADGES_AUTO_EVALUATE=false disables badges.auto_evaluate.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)

		if val := os.Getenv(envKey); val != "" {
			if enabled, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = enabled
			}
		}

		if val := os.Getenv(envKey + "_ROLLOUT"); val != "" {
			if percent, err := strconv.Atoi(val); err == nil && percent >= 0 && percent <= 100 {
				feature.RolloutPercent = percent
			}
		}
	}
}

// featureNameToEnvKey converts "badges.auto_evaluate" to "FEATURE_BADGES_AUTO_EVALUATE".
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check student override first
	if ctx != nil && ctx.StudentID != "" {
		if overrides, ok := ff.studentOverrides[ctx.StudentID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if !feature.Enabled {
		return false
	}

	// Admins see everything that is enabled
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Time window
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Cohort targeting
	if len(feature.TargetCohorts) > 0 {
		if ctx == nil || ctx.Cohort == "" {
			return false
		}
		found := false
		for _, cohort := range feature.TargetCohorts {
			if cohort == ctx.Cohort {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// Rollout percentage
	if feature.RolloutPercent < 100 {
		if ctx == nil || ctx.StudentID == "" {
			return false
		}
		return ff.isInRollout(ctx.StudentID, featureName, feature.RolloutPercent)
	}

	return true
}

// isInRollout deterministically assigns a student to the rollout bucket.
// The feature name participates in the hash, so rollouts of different
// features select different student subsets.
func (ff *FeatureFlags) isInRollout(studentID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(studentID))
	h.Write([]byte(featureName))
	bucket := h.Sum32() % 100
	return int(bucket) < percent
}

// SetStudentOverride forces a feature on or off for one student.
func (ff *FeatureFlags) SetStudentOverride(studentID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.studentOverrides[studentID] == nil {
		ff.studentOverrides[studentID] = make(map[string]bool)
	}
	ff.studentOverrides[studentID][featureName] = enabled
}

// ClearStudentOverrides removes all overrides for a student.
func (ff *FeatureFlags) ClearStudentOverrides(studentID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.studentOverrides, studentID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	if percent < 0 || percent > 100 {
		return &FeatureFlagError{Message: "rollout percent must be 0-100"}
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Message: "unknown feature: " + featureName}
	}
	feature.RolloutPercent = percent
	return nil
}

// EnableFeature turns a feature on.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.setEnabled(featureName, true)
}

// DisableFeature turns a feature off.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.setEnabled(featureName, false)
}

func (ff *FeatureFlags) setEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Message: "unknown feature: " + featureName}
	}
	feature.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of all registered features.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make(map[string]*Feature, len(ff.features))
	for name, feature := range ff.features {
		copied := *feature
		out[name] = &copied
	}
	return out
}

// FeatureFlagError represents a feature flag operation error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return "feature flag: " + e.Message
}
