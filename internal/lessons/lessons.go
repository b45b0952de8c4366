// Package lessons defines the record and snapshot types shared across subsystems.
package lessons

import "time"

// Lesson is one extracted content record. String fields use the empty string
// as "absent"; PublishDate uses the zero time.
type Lesson struct {
	ID          string    `json:"id,omitempty"`
	URL         string    `json:"url"`
	MediaURL    string    `json:"media_url,omitempty"`
	Title       string    `json:"title,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	PublishDate time.Time `json:"publish_date,omitzero"`
	UpdatedAt   time.Time `json:"updated_at"`
	Valid       bool      `json:"valid"`
}

// Validity reports whether a record counts as valid. It depends only on the
// media URL and title; tags, date and ID presence never factor in.
func Validity(mediaURL, title string) bool {
	return mediaURL != "" && title != ""
}

// HasPublishDate reports whether the publish date was extracted.
func (l Lesson) HasPublishDate() bool {
	return !l.PublishDate.IsZero()
}

// Clone returns a deep copy of the lesson.
func (l Lesson) Clone() Lesson {
	out := l
	if l.Tags != nil {
		out.Tags = append([]string(nil), l.Tags...)
	}
	return out
}

// Snapshot is a point-in-time record set for one crawl subject. Lessons are
// unique by URL. Snapshots are versioned in storage, never updated in place.
type Snapshot struct {
	Subject    string    `json:"subject"`
	CapturedAt time.Time `json:"captured_at"`
	Lessons    []Lesson  `json:"lessons"`
}

// Clone returns a value copy that shares no slices with the receiver.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Lessons = make([]Lesson, len(s.Lessons))
	for i, l := range s.Lessons {
		out.Lessons[i] = l.Clone()
	}
	return out
}

// URLIndex returns the set of lesson URLs present in the snapshot.
func (s Snapshot) URLIndex() map[string]struct{} {
	idx := make(map[string]struct{}, len(s.Lessons))
	for _, l := range s.Lessons {
		idx[l.URL] = struct{}{}
	}
	return idx
}
