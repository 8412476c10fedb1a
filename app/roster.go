package app

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/regbot/registration"
)

// maxMessageRunes stays under Telegram's 4096 character message limit.
const maxMessageRunes = 4000

var persianDigits = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// guestNumber parses a guest count written with Latin, Persian or Arabic
// digits. Free text such as "نامشخص" is not a number.
func guestNumber(raw string) (int, bool) {
	n, err := strconv.Atoi(persianDigits.Replace(strings.TrimSpace(raw)))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Roster summarizes the registrations for admins.
type Roster struct {
	Count int
	// Guests sums the guest counts that parse as numbers.
	Guests int
	// Unknown counts records whose guest count is not a number.
	Unknown int
	Lines   []string
}

// BuildRoster tallies records in registration order.
func BuildRoster(records []registration.Record) Roster {
	r := Roster{Count: len(records), Lines: make([]string, 0, len(records))}
	for i, rec := range records {
		if n, ok := guestNumber(rec.GuestCount); ok {
			r.Guests += n
		} else {
			r.Unknown++
		}
		r.Lines = append(r.Lines, fmt.Sprintf("%d. %s | %s | %s", i+1, rec.Name, rec.StudentID, rec.GuestCount))
	}
	return r
}

// Messages renders the roster as one or more messages, splitting on line
// boundaries so no message exceeds the Telegram length limit. A single line
// over the limit is cut into pieces.
func (r Roster) Messages() []string {
	if r.Count == 0 {
		return []string{msgRosterEmpty}
	}
	header := fmt.Sprintf("📋 تعداد ثبت‌نام‌ها: %d\n👥 مجموع همراهان: %d", r.Count, r.Guests)
	if r.Unknown > 0 {
		header += fmt.Sprintf("\n❔ همراهان نامشخص: %d", r.Unknown)
	}

	var (
		out []string
		b   strings.Builder
	)
	b.WriteString(header)
	for _, line := range splitLong(r.Lines) {
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(line)+1 > maxMessageRunes {
			out = append(out, b.String())
			b.Reset()
		} else {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return append(out, b.String())
}

// splitLong cuts every line longer than maxMessageRunes into pieces that fit.
func splitLong(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		runes := []rune(line)
		for len(runes) > maxMessageRunes {
			out = append(out, string(runes[:maxMessageRunes]))
			runes = runes[maxMessageRunes:]
		}
		out = append(out, string(runes))
	}
	return out
}
