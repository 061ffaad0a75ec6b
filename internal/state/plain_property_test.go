package state_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"goa.design/estimo/internal/state"
)

// snapshot pulls out the subset of exported fields this property exercises,
// sidestepping State's unexported mutex field so two States can be compared with
// reflect-based equality without copylocks noise.
type snapshot struct {
	Query     string
	SessionID string
	UserID    string
	Status    state.Status
	Error     string
	Metadata  map[string]any
	FileNames []string
	FileMIMEs []string
}

func snap(s *state.State) snapshot {
	names := make([]string, len(s.Files))
	mimes := make([]string, len(s.Files))
	for i, f := range s.Files {
		names[i] = f.Name
		mimes[i] = f.MIME
	}
	return snapshot{
		Query: s.Query, SessionID: s.SessionID, UserID: s.UserID,
		Status: s.Status, Error: s.Error, Metadata: s.Metadata,
		FileNames: names, FileMIMEs: mimes,
	}
}

// genState builds an arbitrary well-formed State from a handful of
// primitive generators, covering the fields spec §8's round-trip law cares
// about (query, identifiers, metadata, files, status, error).
func genState() gopter.Gen {
	return gopter.CombineGens(
		gen.AlphaString(),
		gen.Identifier(),
		gen.Identifier(),
		gen.SliceOfN(3, gen.Identifier()),
		gen.AlphaString(),
	).Map(func(vals []interface{}) *state.State {
		query := vals[0].(string)
		sessionID := vals[1].(string)
		userID := vals[2].(string)
		fileNames := vals[3].([]string)
		errText := vals[4].(string)

		s := state.New(sessionID, userID, time.Unix(0, 0).UTC())
		s.Query = query
		s.Error = errText
		s.Metadata["source"] = "property-test"
		for _, name := range fileNames {
			s.Files = append(s.Files, state.File{Name: name, MIME: "text/plain"})
		}
		return s
	})
}

// TestFromPlainToPlainRoundTrip verifies spec §8's round-trip law:
// from_plain(to_plain(state)) == state, on public fields.
func TestFromPlainToPlainRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FromPlain(ToPlain(s)) reproduces s's public fields", prop.ForAll(
		func(s *state.State) bool {
			roundTripped := state.FromPlain(s.ToPlain())
			return reflect.DeepEqual(snap(s), snap(roundTripped))
		},
		genState(),
	))

	properties.TestingRun(t)
}
