package report

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
	"github.com/dharsanguruparan/AgentDesk/internal/notify"
)

const (
	opAdd = iota
	opRemoveFirst
	opRemoveLast
)

// However adds and removes interleave, at least one client remains and a
// rejected removal leaves the list untouched.
func TestMinimumClientCountProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("client list never drops below one", prop.ForAll(
		func(ops []int) bool {
			clock := &manualClock{}
			s := NewStore(Deps{
				Identity:   "KEN",
				Gateway:    gateway.NewMemoryGateway(),
				Notifier:   notify.Discard{},
				GenerateID: sequentialIDs(),
				AfterFunc:  clock.AfterFunc,
			})
			defer s.Close()

			for _, op := range ops {
				before := s.Clients()
				var err error
				switch op {
				case opAdd:
					s.AddClient()
				case opRemoveFirst:
					err = s.RemoveClient(before[0].ID)
				case opRemoveLast:
					err = s.RemoveClient(before[len(before)-1].ID)
				}
				after := s.Clients()
				if len(after) < 1 {
					return false
				}
				if errors.Is(err, ErrMinimumClients) && !sameIDs(before, after) {
					return false
				}
				if len(before) == 1 && op != opAdd && !errors.Is(err, ErrMinimumClients) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(opAdd, opRemoveLast)),
	))

	properties.TestingRun(t)
}

func sameIDs(a, b []model.Client) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
