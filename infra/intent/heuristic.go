// Package intent provides intent.Extractor implementations: a keyword
// heuristic that needs no external service and an OpenAI-compatible chat
// completion client.
package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/kilianp07/chargeflex/core/model"
)

var (
	exhaustedRe = regexp.MustCompile(`\b(dead|empty|flat battery)\b`)
	percentRe   = regexp.MustCompile(`(\d{1,3})\s*(?:%|percent\b)`)
	atLeastRe   = regexp.MustCompile(`\bat least (\d{1,3})\b`)
	clockRe     = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	meridiemRe  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)

	highWords = []string{"panic", "urgent", "emergency", "asap", "meeting", "appointment", "interview", "flight", "deadline", "running late", "critical"}
	lowWords  = []string{"no rush", "no hurry", "all day", "all night", "overnight", "whenever", "flexible", "tomorrow"}
	// minimum-charge cues looked up right before a percentage
	targetCues = []string{"need", "least", "want", "target", "up to", "get to", "charge to"}

	namedTimes = []struct {
		word string
		at   string
	}{
		{"noon", "12:00"},
		{"midnight", "00:00"},
		{"evening", "18:00"},
		{"tonight", "20:00"},
		{"morning", "08:00"},
	}
)

// Heuristic extracts signals with keyword rules. It never fails.
type Heuristic struct{}

// Extract implements intent.Extractor.
func (Heuristic) Extract(_ context.Context, text string, startSoCHint *int) (model.IntentSignals, error) {
	lower := strings.ToLower(text)
	sig := model.UnknownSignals(text)

	sig.Exhausted = exhaustedRe.MatchString(lower)
	sig.StartSoC, sig.MinSoC = percentages(lower)
	if sig.MinSoC == nil {
		if m := atLeastRe.FindStringSubmatch(lower); m != nil {
			sig.MinSoC = atoi(m[1])
		}
	}
	if sig.MinSoC == nil && (strings.Contains(lower, "full charge") || strings.Contains(lower, "fully charged")) {
		sig.MinSoC = model.IntPtr(100)
	}
	if sig.Exhausted {
		sig.StartSoC = nil
	} else if sig.StartSoC == nil && startSoCHint != nil {
		sig.StartSoC = model.IntPtr(*startSoCHint)
	}
	sig.LeaveBy = leaveBy(lower)
	sig.PriorityHint = priority(lower, sig.LeaveBy != "")
	return sig, nil
}

// percentages returns the first plain percentage as the current SoC and the
// first percentage preceded by a target cue as the minimum.
func percentages(lower string) (start, minimum *int) {
	for _, loc := range percentRe.FindAllStringSubmatchIndex(lower, -1) {
		v := atoi(lower[loc[2]:loc[3]])
		from := loc[0] - 20
		if from < 0 {
			from = 0
		}
		before := lower[from:loc[0]]
		if hasAny(before, targetCues) {
			if minimum == nil {
				minimum = v
			}
			continue
		}
		if start == nil {
			start = v
		}
	}
	return start, minimum
}

func leaveBy(lower string) string {
	if m := clockRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if h, ok := to24(h, m[3]); ok && mm < 60 {
			return model.NewTimeOfDay(h, mm).String()
		}
	}
	if m := meridiemRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h, ok := to24(h, m[2]); ok {
			return model.NewTimeOfDay(h, 0).String()
		}
	}
	for _, nt := range namedTimes {
		if strings.Contains(lower, nt.word) {
			return nt.at
		}
	}
	return ""
}

func to24(h int, meridiem string) (int, bool) {
	switch meridiem {
	case "":
		return h, h < 24
	case "am":
		if h < 1 || h > 12 {
			return 0, false
		}
		return h % 12, true
	case "pm":
		if h < 1 || h > 12 {
			return 0, false
		}
		return h%12 + 12, true
	}
	return 0, false
}

func priority(lower string, hasDeadline bool) string {
	switch {
	case hasAny(lower, highWords):
		return model.PriorityHigh.String()
	case hasAny(lower, lowWords):
		return model.PriorityLow.String()
	case hasDeadline:
		return model.PriorityMedium.String()
	}
	return ""
}

func hasAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func atoi(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

