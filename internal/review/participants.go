package review

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
)

// RequiredFlag says whether a participant's approval gates the review.
type RequiredFlag uint8

const (
	// RequiredNone marks an optional reviewer.
	RequiredNone RequiredFlag = iota

	// RequiredAll marks a required user, or a group whose members must
	// all vote up.
	RequiredAll

	// RequiredQuorumOne marks a group where one up vote from any member
	// is enough.
	RequiredQuorumOne
)

// String returns the stored form of the flag.
func (f RequiredFlag) String() string {
	switch f {
	case RequiredAll:
		return "true"
	case RequiredQuorumOne:
		return "1"
	default:
		return ""
	}
}

// ParseRequired parses the stored form of a required flag.
func ParseRequired(s string) (RequiredFlag, error) {
	switch s {
	case "", "false":
		return RequiredNone, nil
	case "true":
		return RequiredAll, nil
	case "1":
		return RequiredQuorumOne, nil
	default:
		return RequiredNone, fmt.Errorf("invalid required flag %q", s)
	}
}

// Vote values.
const (
	VoteDown  = -1
	VoteClear = 0
	VoteUp    = 1
)

// Vote is a participant's vote and the version it was cast against.
type Vote struct {
	Value   int `json:"value"`
	Version int `json:"version"`
}

// ParticipantData is everything tracked about one participant.
type ParticipantData struct {
	Vote                  fn.Option[Vote]
	Required              RequiredFlag
	NotificationsDisabled bool
	ReadBy                []int
}

// VotedUp reports whether the participant holds an up vote.
func (d ParticipantData) VotedUp() bool {
	return fn.MapOptionZ(d.Vote, func(v Vote) bool {
		return v.Value == VoteUp
	})
}

// HasRead reports whether the participant marked version read.
func (d ParticipantData) HasRead(version int) bool {
	return slices.Contains(d.ReadBy, version)
}

// Participant is a user or group attached to a review.
type Participant struct {
	ID   string
	Data ParticipantData
}

// IsGroup reports whether the participant is a group.
func (p Participant) IsGroup() bool {
	return directory.IsGroupID(p.ID)
}

// Participants is the ordered participant list of a review.
type Participants []Participant

// Index returns the position of id or -1.
func (ps Participants) Index(id string) int {
	return slices.IndexFunc(ps, func(p Participant) bool {
		return p.ID == id
	})
}

// Get returns the data for id.
func (ps Participants) Get(id string) (ParticipantData, bool) {
	idx := ps.Index(id)
	if idx < 0 {
		return ParticipantData{}, false
	}

	return ps[idx].Data, true
}

// Has reports whether id participates.
func (ps Participants) Has(id string) bool {
	return ps.Index(id) >= 0
}

// Set replaces the data for id, appending the participant if needed.
func (ps Participants) Set(id string, data ParticipantData) Participants {
	if idx := ps.Index(id); idx >= 0 {
		out := ps.Clone()
		out[idx].Data = data

		return out
	}

	return append(ps.Clone(), Participant{ID: id, Data: data})
}

// Add appends id with empty data unless it already participates.
func (ps Participants) Add(id string) Participants {
	if ps.Has(id) {
		return ps
	}

	return ps.Set(id, ParticipantData{})
}

// Remove drops id.
func (ps Participants) Remove(id string) Participants {
	return slices.DeleteFunc(ps.Clone(), func(p Participant) bool {
		return p.ID == id
	})
}

// IDs lists participant ids in order.
func (ps Participants) IDs() []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}

	return ids
}

// Clone deep copies the list.
func (ps Participants) Clone() Participants {
	if ps == nil {
		return nil
	}

	out := make(Participants, len(ps))
	for i, p := range ps {
		out[i] = p
		out[i].Data.ReadBy = slices.Clone(p.Data.ReadBy)
	}

	return out
}

// Unsubscribed counts participants with notifications disabled.
func (ps Participants) Unsubscribed() int {
	n := 0
	for _, p := range ps {
		if p.Data.NotificationsDisabled {
			n++
		}
	}

	return n
}

// UpVoters returns the ids holding an up vote.
func (ps Participants) UpVoters() []string {
	var ids []string
	for _, p := range ps {
		if p.Data.VotedUp() {
			ids = append(ids, p.ID)
		}
	}

	return ids
}

// participantJSON is the stored shape of a participant.
type participantJSON struct {
	ID                    string `json:"id"`
	Vote                  *Vote  `json:"vote,omitempty"`
	Required              string `json:"required,omitempty"`
	NotificationsDisabled bool   `json:"notificationsDisabled,omitempty"`
	ReadBy                []int  `json:"readBy,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (ps Participants) MarshalJSON() ([]byte, error) {
	out := make([]participantJSON, len(ps))
	for i, p := range ps {
		out[i] = participantJSON{
			ID:                    p.ID,
			Required:              p.Data.Required.String(),
			NotificationsDisabled: p.Data.NotificationsDisabled,
			ReadBy:                p.Data.ReadBy,
		}
		p.Data.Vote.WhenSome(func(v Vote) {
			out[i].Vote = &v
		})
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ps *Participants) UnmarshalJSON(b []byte) error {
	var in []participantJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	out := make(Participants, 0, len(in))
	for _, p := range in {
		required, err := ParseRequired(p.Required)
		if err != nil {
			return fmt.Errorf("participant %s: %w", p.ID, err)
		}

		data := ParticipantData{
			Required:              required,
			NotificationsDisabled: p.NotificationsDisabled,
			ReadBy:                p.ReadBy,
		}
		if p.Vote != nil {
			data.Vote = fn.Some(*p.Vote)
		}

		out = append(out, Participant{ID: p.ID, Data: data})
	}
	*ps = out

	return nil
}

// Delta buckets the reviewer changes between two participant lists.
type Delta struct {
	Removed       []string `json:"removed,omitempty"`
	AddedRequired []string `json:"addedRequired,omitempty"`
	AddedOptional []string `json:"addedOptional,omitempty"`
	MadeRequired  []string `json:"madeRequired,omitempty"`
	MadeOptional  []string `json:"madeOptional,omitempty"`
}

// Buckets counts the non-empty buckets.
func (d Delta) Buckets() int {
	n := 0
	for _, b := range [][]string{
		d.Removed, d.AddedRequired, d.AddedOptional, d.MadeRequired,
		d.MadeOptional,
	} {
		if len(b) > 0 {
			n++
		}
	}

	return n
}

// Size counts the participants touched across all buckets.
func (d Delta) Size() int {
	return len(d.Removed) + len(d.AddedRequired) + len(d.AddedOptional) +
		len(d.MadeRequired) + len(d.MadeOptional)
}

// Only returns the single touched participant, if exactly one was.
func (d Delta) Only() (string, bool) {
	if d.Size() != 1 {
		return "", false
	}

	for _, b := range [][]string{
		d.Removed, d.AddedRequired, d.AddedOptional, d.MadeRequired,
		d.MadeOptional,
	} {
		if len(b) == 1 {
			return b[0], true
		}
	}

	return "", false
}

// Diff compares prev against cur.
func Diff(prev, cur Participants) Delta {
	var d Delta
	for _, p := range prev {
		if !cur.Has(p.ID) {
			d.Removed = append(d.Removed, p.ID)
		}
	}

	for _, p := range cur {
		before, ok := prev.Get(p.ID)
		required := p.Data.Required != RequiredNone

		switch {
		case !ok && required:
			d.AddedRequired = append(d.AddedRequired, p.ID)

		case !ok:
			d.AddedOptional = append(d.AddedOptional, p.ID)

		case before.Required == RequiredNone && required:
			d.MadeRequired = append(d.MadeRequired, p.ID)

		case before.Required != RequiredNone && !required:
			d.MadeOptional = append(d.MadeOptional, p.ID)
		}
	}

	return d
}
