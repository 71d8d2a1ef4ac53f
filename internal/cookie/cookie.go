// Package cookie implements Set-Cookie/Cookie parsing and serialization per
// the attribute grammar used across browsers, with RFC-2822-compatible
// Expires dates.
package cookie

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type FlagKind int

const (
	FlagDomain FlagKind = iota
	FlagExpires
	FlagMaxAge
	FlagHttpOnly
	FlagPartitioned
	FlagSecure
	FlagSameSiteStrict
	FlagSameSiteLax
	FlagSameSiteNone
)

// expiresLayout is wire-compatible with RFC-2822 dates as used by Set-Cookie
// Expires attributes; it writes and expects a numeric zone ("+0000").
const expiresLayout = time.RFC1123Z

// Flag is one cookie attribute. Only the field matching Kind is meaningful:
// Domain for FlagDomain, Expires for FlagExpires, MaxAge for FlagMaxAge. The
// rest (HttpOnly, Partitioned, Secure, SameSite*) carry no payload.
type Flag struct {
	Kind    FlagKind
	Domain  string
	Expires time.Time
	MaxAge  uint32
}

func DomainFlag(domain string) Flag        { return Flag{Kind: FlagDomain, Domain: domain} }
func ExpiresFlag(t time.Time) Flag         { return Flag{Kind: FlagExpires, Expires: t} }
func MaxAgeFlag(seconds uint32) Flag       { return Flag{Kind: FlagMaxAge, MaxAge: seconds} }
func HttpOnlyFlag() Flag                   { return Flag{Kind: FlagHttpOnly} }
func PartitionedFlag() Flag                { return Flag{Kind: FlagPartitioned} }
func SecureFlag() Flag                     { return Flag{Kind: FlagSecure} }
func SameSiteStrictFlag() Flag             { return Flag{Kind: FlagSameSiteStrict} }
func SameSiteLaxFlag() Flag                { return Flag{Kind: FlagSameSiteLax} }
func SameSiteNoneFlag() Flag               { return Flag{Kind: FlagSameSiteNone} }

func (f Flag) equal(other Flag) bool {
	if f.Kind != other.Kind {
		return false
	}
	switch f.Kind {
	case FlagDomain:
		return f.Domain == other.Domain
	case FlagExpires:
		return f.Expires.Equal(other.Expires)
	case FlagMaxAge:
		return f.MaxAge == other.MaxAge
	default:
		return true
	}
}

// Cookie is a name/value pair plus an ordered, de-duplicated set of flags.
// A slice (not a map) backs the flag set so serialization order is
// deterministic and matches insertion order.
type Cookie struct {
	name  string
	value string
	flags []Flag
}

var (
	ErrBadHeader            = errors.New("cookie: could not parse header fields")
	ErrMissingCookieLine    = errors.New("cookie: no cookie in header line")
	ErrMissingCookieFields  = errors.New("cookie: malformed cookie line")
)

type MalformedAttributeError struct {
	Attr string
}

func (e *MalformedAttributeError) Error() string {
	return fmt.Sprintf("cookie: malformed cookie attribute: %s", e.Attr)
}

func New(name, value string) *Cookie {
	return &Cookie{name: name, value: value}
}

func (c *Cookie) Name() string  { return c.name }
func (c *Cookie) Value() string { return c.value }

// PushFlag appends flag unless an equal flag is already present.
func (c *Cookie) PushFlag(flag Flag) *Cookie {
	for _, existing := range c.flags {
		if existing.equal(flag) {
			return c
		}
	}
	c.flags = append(c.flags, flag)
	return c
}

func (c *Cookie) HasFlag(flag Flag) bool {
	for _, existing := range c.flags {
		if existing.equal(flag) {
			return true
		}
	}
	return false
}

func (c *Cookie) Flags() []Flag {
	out := make([]Flag, len(c.flags))
	copy(out, c.flags)
	return out
}

// Serialize renders the Set-Cookie wire value, excluding the header name
// itself (callers append it via headers.Add("Set-Cookie", ...)).
func (c *Cookie) Serialize() string {
	var buf strings.Builder
	buf.WriteString(c.name)
	buf.WriteByte('=')
	buf.WriteString(c.value)

	var attrs []string
	for _, flag := range c.flags {
		switch flag.Kind {
		case FlagDomain:
			attrs = append(attrs, "Domain="+flag.Domain)
		case FlagExpires:
			attrs = append(attrs, "Expires="+flag.Expires.UTC().Format(expiresLayout))
		case FlagMaxAge:
			attrs = append(attrs, "Max-Age="+strconv.FormatUint(uint64(flag.MaxAge), 10))
		case FlagHttpOnly:
			attrs = append(attrs, "HttpOnly")
		case FlagPartitioned:
			attrs = append(attrs, "Partitioned")
		case FlagSecure:
			attrs = append(attrs, "Secure")
		case FlagSameSiteStrict:
			attrs = append(attrs, "SameSite=Strict")
		case FlagSameSiteLax:
			attrs = append(attrs, "SameSite=Lax")
		case FlagSameSiteNone:
			attrs = append(attrs, "SameSite=None")
		}
	}

	if len(attrs) > 0 {
		buf.WriteString("; ")
		buf.WriteString(strings.Join(attrs, "; "))
	}

	return buf.String()
}

// Parse parses a single "Cookie: name=value; Flag; ..." or
// "Set-Cookie: name=value; Flag; ..." header line, including the leading
// field name.
func Parse(line string) (*Cookie, error) {
	kv := strings.SplitN(line, ":", 2)
	if len(kv) != 2 {
		return nil, ErrBadHeader
	}

	var parts []string
	for _, p := range strings.Split(kv[1], ";") {
		parts = append(parts, strings.TrimSpace(p))
	}
	if len(parts) == 0 || parts[0] == "" {
		return nil, ErrMissingCookieLine
	}

	nameVal := strings.SplitN(parts[0], "=", 2)
	if len(nameVal) != 2 {
		return nil, ErrMissingCookieFields
	}

	c := New(strings.TrimSpace(nameVal[0]), strings.TrimSpace(nameVal[1]))

	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		switch strings.ToLower(part) {
		case "secure":
			c.PushFlag(SecureFlag())
			continue
		case "httponly":
			c.PushFlag(HttpOnlyFlag())
			continue
		case "partitioned":
			c.PushFlag(PartitionedFlag())
			continue
		case "samesite=strict":
			c.PushFlag(SameSiteStrictFlag())
			continue
		case "samesite=lax":
			c.PushFlag(SameSiteLaxFlag())
			continue
		case "samesite=none":
			c.PushFlag(SameSiteNoneFlag())
			continue
		}

		attrs := strings.SplitN(part, "=", 2)
		if len(attrs) != 2 {
			return nil, &MalformedAttributeError{Attr: part}
		}
		key := strings.TrimSpace(attrs[0])
		val := strings.TrimSpace(attrs[1])

		switch strings.ToLower(key) {
		case "domain":
			c.PushFlag(DomainFlag(val))
		case "expires":
			t, err := time.Parse(expiresLayout, val)
			if err != nil {
				return nil, &MalformedAttributeError{Attr: "expiry"}
			}
			c.PushFlag(ExpiresFlag(t.UTC()))
		case "max-age":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				n = 0
			}
			c.PushFlag(MaxAgeFlag(uint32(n)))
		default:
			return nil, &MalformedAttributeError{Attr: key}
		}
	}

	return c, nil
}
