package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags holds runtime toggles for registrar behaviour that the office
// switches on and off between terms.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Predefined feature flag names.
const (
	// Public self-registration endpoint accepts new students
	FeatureRegistrationOpen = "registration.open"
	// Semester enrollment endpoint accepts course selections
	FeatureEnrollmentOpen = "enrollment.open"
	// Admins may set a letter grade by hand
	FeatureGradeOverrides = "grades.overrides"
	// Batch archives carry a FAILED.txt listing skipped students
	FeatureExportFailureManifest = "export.failure_manifest"
	// Student records are cached in Redis
	FeatureRecordCache = "cache.records"
)

// LoadFeatureFlags creates flags with defaults, then applies FEATURE_* env
// overrides.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.register(FeatureRegistrationOpen, "Public student registration", true)
	ff.register(FeatureEnrollmentOpen, "Semester course enrollment", true)
	ff.register(FeatureGradeOverrides, "Manual letter grade overrides", true)
	ff.register(FeatureExportFailureManifest, "FAILED.txt in transcript archives", true)
	ff.register(FeatureRecordCache, "Redis read-through cache for student records", true)
}

func (ff *FeatureFlags) register(name, description string, enabled bool) {
	ff.features[name] = &Feature{Name: name, Description: description, Enabled: enabled}
}

// loadFromEnvironment applies FEATURE_<NAME>=true|false.
// Example: FEATURE_REGISTRATION_OPEN=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
		}
	}
}

// featureNameToEnvKey converts "export.failure_manifest" into
// "FEATURE_EXPORT_FAILURE_MANIFEST".
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled reports whether the named feature is on. Unknown names are off.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[name]
	return ok && f.Enabled
}

// Set toggles a feature at runtime.
func (ff *FeatureFlags) Set(name string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[name]
	if !ok {
		return ErrFeatureNotFound
	}
	f.Enabled = enabled
	return nil
}

// All returns a snapshot of every flag, sorted by name.
func (ff *FeatureFlags) All() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --- Errors ---

var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
