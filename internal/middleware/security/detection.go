package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"planner/internal/log"
)

// DefaultTrustedProxies are the networks whose forwarding headers are believed
// when no proxies are configured.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// Rule flags one kind of request the planner never legitimately receives.
type Rule struct {
	Name  string
	Match func(r *http.Request) bool
}

// DetectorConfig configures a Detector. Zero values select the defaults.
type DetectorConfig struct {
	TrustedProxies []string
	Rules          []Rule
}

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	ByRule             map[string]int64
}

// Detector handles suspicious request detection
type Detector struct {
	rules          []Rule
	hits           []atomic.Int64
	suspicious     atomic.Int64
	invalidIP      atomic.Int64
	trustedProxies []*net.IPNet
}

// NewDetector builds a detector from cfg.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	proxies := cfg.TrustedProxies
	if len(proxies) == 0 {
		proxies = DefaultTrustedProxies
	}
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}

	d := &Detector{rules: rules, hits: make([]atomic.Int64, len(rules))}
	for _, cidr := range proxies {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy CIDR %s: %w", cidr, err)
		}
		d.trustedProxies = append(d.trustedProxies, network)
	}
	return d, nil
}

// DefaultRules covers what the planner's routes make obviously hostile: it
// serves HTML fragments under /ui, embedded CSS under /static and three ops
// endpoints, takes only GET and POST, and reads credentials and an expense
// draft from small form bodies.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "path_traversal", Match: func(r *http.Request) bool {
			raw := strings.ToLower(r.URL.EscapedPath())
			return strings.Contains(r.URL.Path, "..") || strings.Contains(raw, "%2e%2e")
		}},
		{Name: "file_probe", Match: func(r *http.Request) bool {
			target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
			for _, p := range []string{".env", ".git", "etc/passwd", "wp-admin", ".php"} {
				if strings.Contains(target, p) {
					return true
				}
			}
			return false
		}},
		{Name: "script_in_query", Match: func(r *http.Request) bool {
			q := strings.ToLower(r.URL.RawQuery)
			return strings.Contains(q, "<script") || strings.Contains(q, "%3cscript") || strings.Contains(q, "javascript:")
		}},
		{Name: "scanner_agent", Match: func(r *http.Request) bool {
			ua := strings.ToLower(r.Header.Get("User-Agent"))
			for _, a := range []string{"sqlmap", "nikto", "nmap", "gobuster", "dirb"} {
				if strings.Contains(ua, a) {
					return true
				}
			}
			return false
		}},
		{Name: "unexpected_method", Match: func(r *http.Request) bool {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodPost:
				return false
			}
			return true
		}},
		{Name: "long_url", Match: func(r *http.Request) bool {
			return len(r.URL.String()) > 2048
		}},
		{Name: "forwarded_chain", Match: func(r *http.Request) bool {
			return strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
		}},
	}
}

// Detect returns the name of the first rule r matches, or "".
func (d *Detector) Detect(r *http.Request) string {
	for i, rule := range d.rules {
		if rule.Match(r) {
			d.hits[i].Add(1)
			d.suspicious.Add(1)
			return rule.Name
		}
	}
	return ""
}

// DetectSuspiciousRequest reports whether any rule matches r.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	return d.Detect(r) != ""
}

// ExtractClientIP returns the client address, believing X-Forwarded-For and
// X-Real-IP only from trusted proxies.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if clientIP := strings.TrimSpace(first); net.ParseIP(clientIP) != nil {
			return clientIP
		}
		d.invalidIP.Add(1)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
		d.invalidIP.Add(1)
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	byRule := make(map[string]int64, len(d.rules))
	for i, rule := range d.rules {
		byRule[rule.Name] = d.hits[i].Load()
	}
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
		ByRule:             byRule,
	}
}

// Middleware logs suspicious requests and lets them through; blocking is left
// to the rate limiter.
func (d *Detector) Middleware(logger *log.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(log.ComponentSecurity)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rule := d.Detect(r); rule != "" {
				fields := log.NewFields().
					WithClientIP(d.ExtractClientIP(r)).
					WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer"))
				fields["rule"] = rule
				logger.WarnContext(r.Context(), "Suspicious request detected", fields.ToSlice()...)
			}
			next.ServeHTTP(w, r)
		})
	}
}
