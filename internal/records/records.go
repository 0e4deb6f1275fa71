// Package records holds the normalized rows extracted from the portal and the
// composite keys they are stored under.
package records

import (
	"fmt"
	"strings"
	"time"
	"webtop-sync/lib/textutil"
)

// UnknownSlot replaces an empty lesson hour or teacher in storage keys.
const UnknownSlot = "unknown"

// Kind names a record family, it doubles as the pipeline's run selector.
type Kind string

const (
	KindHomework Kind = "homework"
	KindSchedule Kind = "schedule"
)

// Key is the composite key of a stored record. PartitionKey is always the
// YYYY-MM-DD date of the record.
type Key struct {
	PartitionKey string
	SortKey      string
}

func (k Key) String() string {
	return k.PartitionKey + "/" + k.SortKey
}

// ValidateDate checks that date is a real calendar date in YYYY-MM-DD form.
func ValidateDate(date string) error {
	parsed, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	if parsed.Format(time.DateOnly) != date {
		return fmt.Errorf("invalid date %q: not in YYYY-MM-DD form", date)
	}
	return nil
}

// Homework is one homework assignment attached to a lesson.
type Homework struct {
	Date             string    `json:"date" yaml:"date"`
	Hour             string    `json:"hour,omitempty" yaml:"hour,omitempty"`
	Subject          string    `json:"subject" yaml:"subject"`
	Teacher          string    `json:"teacher,omitempty" yaml:"teacher,omitempty"`
	Status           string    `json:"status,omitempty" yaml:"status,omitempty"`
	Description      string    `json:"description,omitempty" yaml:"description,omitempty"`
	HomeworkText     string    `json:"homework_text" yaml:"homework_text"`
	ClassDescription string    `json:"class_description,omitempty" yaml:"class_description,omitempty"`
	Source           string    `json:"source,omitempty" yaml:"source,omitempty"`
	ExtractedAt      time.Time `json:"extracted_at" yaml:"extracted_at"`
}

// Key derives `date` / `hour#subject`, an empty hour becomes UnknownSlot.
func (h Homework) Key() (Key, error) {
	err := ValidateDate(h.Date)
	if err != nil {
		return Key{}, err
	}
	if strings.TrimSpace(h.Subject) == "" {
		return Key{}, fmt.Errorf("homework on %s has no subject", h.Date)
	}
	hour := strings.TrimSpace(h.Hour)
	if hour == "" {
		hour = UnknownSlot
	}
	return Key{
		PartitionKey: h.Date,
		SortKey:      hour + "#" + h.Subject,
	}, nil
}

// Fingerprint is the content compared to decide whether a stored row changed.
func (h Homework) Fingerprint() []string {
	return []string{h.HomeworkText, h.Description}
}

// Schedule is one class slot of the weekly schedule.
type Schedule struct {
	Date             string    `json:"date" yaml:"date"`
	ClassNumber      int       `json:"class_number" yaml:"class_number"`
	Teacher          string    `json:"teacher,omitempty" yaml:"teacher,omitempty"`
	Subject          string    `json:"subject" yaml:"subject"`
	ClassDescription string    `json:"class_description,omitempty" yaml:"class_description,omitempty"`
	ClassComments    string    `json:"class_comments,omitempty" yaml:"class_comments,omitempty"`
	DayName          string    `json:"day_name,omitempty" yaml:"day_name,omitempty"`
	Source           string    `json:"source,omitempty" yaml:"source,omitempty"`
	ExtractedAt      time.Time `json:"extracted_at" yaml:"extracted_at"`
}

// Key derives `date` / `NN#normalizedteacher`. The class number is zero padded
// so sort keys order like class numbers.
func (s Schedule) Key() (Key, error) {
	err := ValidateDate(s.Date)
	if err != nil {
		return Key{}, err
	}
	if s.ClassNumber < 1 {
		return Key{}, fmt.Errorf("schedule on %s has invalid class number %d", s.Date, s.ClassNumber)
	}
	teacher := textutil.NormalizeKey(s.Teacher)
	if teacher == "" {
		teacher = UnknownSlot
	}
	return Key{
		PartitionKey: s.Date,
		SortKey:      fmt.Sprintf("%02d#%s", s.ClassNumber, teacher),
	}, nil
}

func (s Schedule) Fingerprint() []string {
	return []string{s.Subject, s.Teacher, s.ClassDescription, s.ClassComments}
}

// Keyed is implemented by every record that can be upserted.
type Keyed interface {
	Key() (Key, error)
	Fingerprint() []string
}

// SameContent compares two fingerprints.
func SameContent(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// InWindow filters dated records, keeping the ones for which keep returns true.
func InWindow[T any](items []T, date func(T) string, keep func(string) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(date(item)) {
			out = append(out, item)
		}
	}
	return out
}
