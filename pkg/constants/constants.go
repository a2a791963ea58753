// Package constants provides shared constants for the loan-compare application.
package constants

// DateLayout is the format expected for calendar dates in config files,
// datasets and API payloads.
const DateLayout = "2006-01-02"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// RatePrecision is the number of fractional digits kept for percentage rates
	RatePrecision = 3

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// LoanUnit is the loan size that income-per-million rules are quoted against
	LoanUnit = 1_000_000.0

	// RelativeTolerance is the relative tolerance for round-trip comparisons
	RelativeTolerance = 1e-6

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Applicant limits enforced before any computation.
const (
	MinApplicantAge = 18
	MaxApplicantAge = 80

	MinTenureYears = 1
	MaxTenureYears = 35
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. LOANCOMPARE_DATABASE_DSN
	EnvPrefix = "LOANCOMPARE"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024

	// DefaultHistoryLimit is the default number of saved calculations returned
	DefaultHistoryLimit = 20

	// MaxHistoryLimit caps the history page size a caller may ask for
	MaxHistoryLimit = 200

	// DefaultSessionTTL is how long an idle comparison session is remembered
	DefaultSessionTTL = "30m"

	// SessionHeader carries the caller's session identifier
	SessionHeader = "X-Session-ID"

	// AnonymousSession is used when a caller does not send a session identifier
	AnonymousSession = "anonymous"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatJSON is the machine-readable output format
	OutputFormatJSON = "json"
)
