// Package anonymize replaces MAC addresses and serial numbers with
// consistent pseudonyms for the lifetime of one run.
package anonymize

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/patrickmn/go-cache"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/logger"
	"github.com/esxtool/esxtool/internal/survey"
)

const component = "anonymize"

// maxAttempts bounds the retries spent finding an unused pseudonym.
const maxAttempts = 64

// DefaultCountryCodes are the serial prefixes drawn from when none are configured.
var DefaultCountryCodes = []string{"CN", "TH", "VN", "US", "JP", "MX", "CZ"}

var (
	serialPattern  = regexp.MustCompile(`^[A-Z]{2}[A-Z]{4}[0-9A-Z]{4}$`)
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

const (
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numerals     = "0123456789"
	upperAlnum   = upperLetters + numerals
)

// IsSerial reports whether s looks like a device serial number.
func IsSerial(s string) bool {
	return serialPattern.MatchString(s)
}

// Options selects what is pseudonymized and how.
type Options struct {
	MACs         bool
	Serials      bool
	LAA          bool     // force locally administered unicast MACs
	PreserveOUI  bool     // keep the first two octets of the source MAC
	CountryCodes []string // serial prefixes; DefaultCountryCodes when empty

	// Rand is the randomness source; crypto/rand when nil.
	Rand io.Reader
}

// Stats counts the work an Engine has done.
type Stats struct {
	MACs       int64 // distinct MAC pseudonyms generated
	Serials    int64 // distinct serial pseudonyms generated
	Rewrites   int64 // fields rewritten by ApplyToProject
	Mismatches int64 // candidates left untouched
}

// Engine hands out pseudonyms. Every source string maps to exactly one
// pseudonym per run, and pseudonyms are unique per identifier kind.
// An Engine is safe for concurrent use.
type Engine struct {
	opts Options
	log  logger.Logger

	macs    *cache.Cache
	serials *cache.Cache

	// mu serializes creation; lookups of known values only touch the caches
	mu    sync.Mutex
	taken map[string]struct{}
	rand  io.Reader

	macCount      atomic.Int64
	serialCount   atomic.Int64
	rewriteCount  atomic.Int64
	mismatchCount atomic.Int64
}

// New creates an Engine scoped to a single run.
func New(opts Options) (*Engine, error) {
	if len(opts.CountryCodes) == 0 {
		opts.CountryCodes = DefaultCountryCodes
	}
	for _, cc := range opts.CountryCodes {
		if !countryPattern.MatchString(cc) {
			return nil, errors.Newf("country code %q must be two uppercase letters", cc).
				Component(component).
				Category(errors.CategoryConfiguration).
				Context("country_code", cc).
				Build()
		}
	}
	codes := make([]string, 0, len(opts.CountryCodes))
	for _, cc := range opts.CountryCodes {
		if !slices.Contains(codes, cc) {
			codes = append(codes, cc)
		}
	}
	opts.CountryCodes = codes

	r := opts.Rand
	if r == nil {
		r = rand.Reader
	}

	return &Engine{
		opts:    opts,
		log:     logger.Global().Module(component),
		macs:    cache.New(cache.NoExpiration, 0),
		serials: cache.New(cache.NoExpiration, 0),
		taken:   make(map[string]struct{}),
		rand:    r,
	}, nil
}

// MAC returns the pseudonym for a MAC address, creating it on first use.
// The pseudonym keeps the source's delimiter style and letter case.
func (e *Engine) MAC(source string) (string, error) {
	if v, ok := e.macs.Get(source); ok {
		return v.(string), nil
	}

	hexDigits, format, ok := parseMAC(source)
	if !ok {
		return "", mismatch("%q is not a MAC address", source)
	}

	return e.getOrCreate(e.macs, source, &e.macCount, func() (string, error) {
		var octets [6]byte
		if _, err := io.ReadFull(e.rand, octets[:]); err != nil {
			return "", err
		}
		return pseudoMAC(octets, hexDigits, format, e.opts.LAA, e.opts.PreserveOUI), nil
	})
}

// Serial returns the pseudonym for a serial number, creating it on first use.
func (e *Engine) Serial(source string) (string, error) {
	if v, ok := e.serials.Get(source); ok {
		return v.(string), nil
	}

	if !IsSerial(source) {
		return "", mismatch("%q is not a serial number", source)
	}

	return e.getOrCreate(e.serials, source, &e.serialCount, e.newSerial)
}

func (e *Engine) getOrCreate(c *cache.Cache, source string, counter *atomic.Int64, generate func() (string, error)) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v, ok := c.Get(source); ok {
		return v.(string), nil
	}

	for range maxAttempts {
		candidate, err := generate()
		if err != nil {
			return "", errors.New(fmt.Errorf("read random source: %w", err)).
				Component(component).
				Category(errors.CategoryGeneric).
				Priority(errors.PriorityHigh).
				Build()
		}
		if _, used := e.taken[candidate]; used {
			continue
		}
		e.taken[candidate] = struct{}{}
		c.Set(source, candidate, cache.NoExpiration)
		counter.Add(1)
		return candidate, nil
	}

	return "", errors.Newf("no unused pseudonym found after %d attempts", maxAttempts).
		Component(component).
		Category(errors.CategoryGeneric).
		Priority(errors.PriorityHigh).
		Build()
}

// newSerial draws a country code, four letters, one digit and three alphanumerics.
func (e *Engine) newSerial() (string, error) {
	cc, err := e.pick(len(e.opts.CountryCodes))
	if err != nil {
		return "", err
	}

	buf := make([]byte, 0, 10)
	buf = append(buf, e.opts.CountryCodes[cc]...)
	for _, alphabet := range []string{upperLetters, upperLetters, upperLetters, upperLetters, numerals, upperAlnum, upperAlnum, upperAlnum} {
		i, err := e.pick(len(alphabet))
		if err != nil {
			return "", err
		}
		buf = append(buf, alphabet[i])
	}
	return string(buf), nil
}

// pick returns a uniform index in [0, n) using rejection sampling on
// 32-bit draws.
func (e *Engine) pick(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("pick from empty set")
	}
	bound := uint64(1) << 32
	limit := bound - bound%uint64(n)
	var b [4]byte
	for {
		if _, err := io.ReadFull(e.rand, b[:]); err != nil {
			return 0, err
		}
		if v := uint64(binary.BigEndian.Uint32(b[:])); v < limit {
			return int(v % uint64(n)), nil
		}
	}
}

func mismatch(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component(component).
		Category(errors.CategoryGrammarMismatch).
		Priority(errors.PriorityLow).
		Build()
}

// ApplyToProject rewrites measurement BSSIDs and access point tag values in
// place. BSSIDs that are not MAC addresses are reported and left untouched;
// tag values are only rewritten when they match a grammar in full. Only
// leaf values change, never ids or references.
func (e *Engine) ApplyToProject(ctx context.Context, p *survey.Project) (*errors.Issues, error) {
	issues := &errors.Issues{}
	if !e.opts.MACs && !e.opts.Serials {
		return issues, nil
	}

	if e.opts.MACs {
		changed := 0
		for i := range p.Measurements {
			m := &p.Measurements[i]
			pseudonym, err := e.MAC(m.MAC)
			if err != nil {
				if !errors.IsCategory(err, errors.CategoryGrammarMismatch) {
					return issues, err
				}
				e.mismatchCount.Add(1)
				issues.Add(errors.New(err).
					Component(component).
					Category(errors.CategoryGrammarMismatch).
					Priority(errors.PriorityLow).
					RecordContext(survey.DocMeasurements, m.ID).
					Build())
				continue
			}
			m.MAC = pseudonym
			changed++
		}
		if changed > 0 {
			p.MarkModified(survey.DocMeasurements)
			e.rewriteCount.Add(int64(changed))
		}
	}

	if err := ctx.Err(); err != nil {
		return issues, cancelled(err)
	}

	changed := 0
	for i := range p.AccessPoints {
		ap := &p.AccessPoints[i]
		for j := range ap.Tags {
			tag := &ap.Tags[j]
			pseudonym, ok, err := e.tagValue(tag.Value)
			if err != nil {
				return issues, err
			}
			if ok {
				tag.Value = pseudonym
				changed++
			}
		}
	}
	if changed > 0 {
		p.MarkModified(survey.DocAccessPoints)
		e.rewriteCount.Add(int64(changed))
	}

	stats := e.Stats()
	e.log.Info("pseudonymized project",
		logger.Int64("macs", stats.MACs),
		logger.Int64("serials", stats.Serials),
		logger.Int64("rewrites", stats.Rewrites),
		logger.Int("issues", issues.Len()))

	return issues, nil
}

// tagValue returns the pseudonym for a free-text tag value when it matches an
// enabled grammar in full. Grammar mismatches are expected here and not reported.
func (e *Engine) tagValue(value string) (string, bool, error) {
	var (
		pseudonym string
		err       error
	)
	switch {
	case e.opts.MACs && IsMAC(value):
		pseudonym, err = e.MAC(value)
	case e.opts.Serials && IsSerial(value):
		pseudonym, err = e.Serial(value)
	default:
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return pseudonym, true, nil
}

func cancelled(err error) error {
	return errors.New(err).
		Component(component).
		Category(errors.CategoryCancellation).
		Build()
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		MACs:       e.macCount.Load(),
		Serials:    e.serialCount.Load(),
		Rewrites:   e.rewriteCount.Load(),
		Mismatches: e.mismatchCount.Load(),
	}
}
