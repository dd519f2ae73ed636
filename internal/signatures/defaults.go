package signatures

import (
	"regexp"

	"github.com/asteroid-belt/aegis/internal/models"
)

// DefaultVersion tags the built-in rule set baked into the binary; the
// `update` command replaces it with a timestamped version fetched from
// upstream.
const DefaultVersion = "built-in"

// defaultUnsafeGlobals is the severity map consulted by the pickle and
// notebook engines for (module, attribute) references that can execute
// code on load (spec.md §4.1, §4.3).
var defaultUnsafeGlobals = []UnsafeRef{
	{Module: "os", Attribute: "system", Severity: models.SeverityCritical, Description: "shell command execution"},
	{Module: "os", Attribute: "popen", Severity: models.SeverityCritical, Description: "shell command execution"},
	{Module: "os", Attribute: "*", Severity: models.SeverityHigh, Description: "arbitrary os module reference"},
	{Module: "posix", Attribute: "system", Severity: models.SeverityCritical, Description: "shell command execution"},
	{Module: "subprocess", Attribute: "*", Severity: models.SeverityCritical, Description: "process spawn"},
	{Module: "builtins", Attribute: "eval", Severity: models.SeverityCritical, Description: "arbitrary code evaluation"},
	{Module: "builtins", Attribute: "exec", Severity: models.SeverityCritical, Description: "arbitrary code execution"},
	{Module: "builtins", Attribute: "compile", Severity: models.SeverityHigh, Description: "dynamic code compilation"},
	{Module: "builtins", Attribute: "__import__", Severity: models.SeverityHigh, Description: "dynamic import"},
	{Module: "builtins", Attribute: "getattr", Severity: models.SeverityLow, Description: "reflective attribute access"},
	{Module: "pickle", Attribute: "*", Severity: models.SeverityHigh, Description: "nested pickle deserialization"},
	{Module: "cPickle", Attribute: "*", Severity: models.SeverityHigh, Description: "nested pickle deserialization"},
	{Module: "socket", Attribute: "*", Severity: models.SeverityHigh, Description: "network socket access"},
	{Module: "requests", Attribute: "*", Severity: models.SeverityMedium, Description: "outbound network request"},
	{Module: "urllib", Attribute: "*", Severity: models.SeverityMedium, Description: "outbound network request"},
	{Module: "urllib2", Attribute: "*", Severity: models.SeverityMedium, Description: "outbound network request"},
	{Module: "httplib", Attribute: "*", Severity: models.SeverityMedium, Description: "outbound network request"},
	{Module: "shutil", Attribute: "rmtree", Severity: models.SeverityHigh, Description: "recursive filesystem deletion"},
	{Module: "nt", Attribute: "system", Severity: models.SeverityCritical, Description: "shell command execution"},
	{Module: "runpy", Attribute: "*", Severity: models.SeverityHigh, Description: "arbitrary module execution"},
	{Module: "ctypes", Attribute: "*", Severity: models.SeverityHigh, Description: "native code invocation"},
	{Module: "webbrowser", Attribute: "*", Severity: models.SeverityLow, Description: "browser launch"},
}

// defaultSafeModules is the whitelist of known-safe scientific-computing
// modules used by the pickle engine's strict mode (spec.md §4.1).
var defaultSafeModules = []string{
	"torch", "torch._utils", "torch.nn", "torch.serialization",
	"numpy", "numpy.core.multiarray", "numpy.core.numeric",
	"collections", "collections.abc",
	"builtins", // only non-dangerous attrs reach here; dangerous ones are caught above first
	"__builtin__",
	"copyreg", "functools", "operator",
	"sklearn", "sklearn.base",
	"pandas", "pandas.core.frame", "pandas.core.series",
}

// DefaultSafeModules returns the built-in whitelist; callers merge in
// configuration's AllowedModules on top of this.
func DefaultSafeModules() []string {
	out := make([]string, len(defaultSafeModules))
	copy(out, defaultSafeModules)
	return out
}

// defaultPromptInjections mirrors the structure of a classic
// instruction-override / jailbreak / exfiltration pattern set, scoped
// here to the phrasing that shows up in poisoned RAG documents and
// dataset cells rather than conversational jailbreaks.
var defaultPromptInjections = []Pattern{
	{
		ID:       "INJ-001",
		Name:     "Ignore Previous Instructions",
		Severity: models.SeverityHigh,
		Regex:    regexp.MustCompile(`(?i)\b(ignore|disregard)\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|guidelines?)`),
	},
	{
		ID:       "INJ-002",
		Name:     "New Instructions Override",
		Severity: models.SeverityHigh,
		Regex:    regexp.MustCompile(`(?i)\b(new|these|my)\s+instructions?\s+(override|supersede|replace|take\s+precedence)`),
	},
	{
		ID:       "INJ-003",
		Name:     "Fake System Marker",
		Severity: models.SeverityCritical,
		Regex:    regexp.MustCompile(`(?i)\[(SYSTEM|ADMIN|ROOT|INTERNAL)\]|<<\s*(SYSTEM|ADMIN)\s*>>`),
	},
	{
		ID:       "INJ-004",
		Name:     "Reveal System Prompt",
		Severity: models.SeverityHigh,
		Regex:    regexp.MustCompile(`(?i)\b(reveal|show|print|output)\s+(me\s+)?(your\s+)?(the\s+)?(system\s+prompt|hidden\s+instructions?|original\s+instructions?)`),
	},
	{
		ID:       "INJ-005",
		Name:     "Exfiltrate via Tool Call",
		Severity: models.SeverityCritical,
		Regex:    regexp.MustCompile(`(?i)\b(send|post|upload|exfil(trate)?)\s+(the\s+)?(data|contents?|conversation)\s+(to|via)\s+(http|https|webhook)`),
	},
	{
		ID:       "INJ-006",
		Name:     "Execute Embedded Command",
		Severity: models.SeverityCritical,
		Regex:    regexp.MustCompile(`(?i)\b(run|execute|eval)\s+(this|the\s+following)\s+(shell\s+)?(command|script|code)\s*[:\s]`),
	},
	{
		ID:       "INJ-007",
		Name:     "Jailbreak Persona",
		Severity: models.SeverityHigh,
		Regex:    regexp.MustCompile(`(?i)\b(you\s+are|act\s+as|pretend\s+to\s+be)\s+(DAN|an?\s+unrestricted|an?\s+unfiltered)\b`),
	},
	{
		ID:       "INJ-008",
		Name:     "Hidden Unicode Directive",
		Severity: models.SeverityMedium,
		Regex:    regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{FEFF}\x{2060}]`),
	},
}

// defaultSuspiciousStrings catches secrets, tokens, credential-bearing
// URLs and common PII shapes (spec.md §3, §4.4, §4.5).
var defaultSuspiciousStrings = []Pattern{
	{
		ID:       "SEC-001",
		Name:     "AWS Access Key",
		Severity: models.SeverityCritical,
		Regex:    regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	},
	{
		ID:       "SEC-002",
		Name:     "Generic API Key Assignment",
		Severity: models.SeverityHigh,
		Regex:    regexp.MustCompile(`(?i)\b(api[_-]?key|secret[_-]?key|access[_-]?token)\s*[:=]\s*['"][A-Za-z0-9\-_]{16,}['"]`),
	},
	{
		ID:       "SEC-003",
		Name:     "Private Key Block",
		Severity: models.SeverityCritical,
		Regex:    regexp.MustCompile(`-----BEGIN (RSA|EC|OPENSSH|DSA|PGP) PRIVATE KEY-----`),
	},
	{
		ID:       "SEC-004",
		Name:     "GitHub Token",
		Severity: models.SeverityCritical,
		Regex:    regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),
	},
	{
		ID:       "SEC-005",
		Name:     "Slack Token",
		Severity: models.SeverityHigh,
		Regex:    regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`),
	},
	{
		ID:       "SEC-006",
		Name:     "Bearer Token in URL",
		Severity: models.SeverityMedium,
		Regex:    regexp.MustCompile(`https?://[^\s'"]*[?&](token|api_key|access_token)=[^\s'"&]+`),
	},
	{
		ID:       "SEC-007",
		Name:     "Malicious-Looking URL",
		Severity: models.SeverityMedium,
		Regex:    regexp.MustCompile(`https?://(bit\.ly|tinyurl\.com|grabify\.link|iplogger\.org)/[A-Za-z0-9]+`),
	},
	{
		ID:       "PII-001",
		Name:     "Email Address",
		Severity: models.SeverityLow,
		Regex:    regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	},
	{
		ID:       "PII-002",
		Name:     "US Social Security Number",
		Severity: models.SeverityHigh,
		Regex:    regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
	{
		ID:       "PII-003",
		Name:     "Credit Card Number",
		Severity: models.SeverityHigh,
		Regex:    regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),
	},
}

// defaultPopularPackages is the typosquat baseline (spec.md §4.6).
var defaultPopularPackages = []string{
	"torch", "tensorflow", "numpy", "pandas", "scipy", "scikit-learn",
	"requests", "flask", "django", "pytest", "matplotlib", "pillow",
	"transformers", "huggingface-hub", "boto3", "pyyaml", "click",
	"urllib3", "certifi", "setuptools", "wheel", "jinja2", "cryptography",
}

// defaultKnownMalicious lists package names previously observed as
// deliberate typosquats or supply-chain plants.
var defaultKnownMalicious = []string{
	"tourch", "python3-dateutil", "crypt", "colourama", "jeIlyfish",
	"urlib3", "reqeusts",
}

// Default builds the signature set compiled into the binary.
func Default() *Set {
	return &Set{
		Version:           DefaultVersion,
		UnsafeGlobals:     append([]UnsafeRef(nil), defaultUnsafeGlobals...),
		PromptInjections:  append([]Pattern(nil), defaultPromptInjections...),
		SuspiciousStrings: append([]Pattern(nil), defaultSuspiciousStrings...),
		PopularPackages:   append([]string(nil), defaultPopularPackages...),
		KnownMalicious:    append([]string(nil), defaultKnownMalicious...),
	}
}
