package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genInstanceStatus generates a random InstanceStatus.
func genInstanceStatus() gopter.Gen {
	return gen.OneConstOf(
		InstanceStatusStarting,
		InstanceStatusRunning,
		InstanceStatusError,
		InstanceStatusStopped,
	)
}

// genTime generates a random time truncated to second precision for JSON
// compatibility.
func genTime() gopter.Gen {
	return gen.Int64Range(0, 2000000000).Map(func(secs int64) time.Time {
		return time.Unix(secs, 0).UTC()
	})
}

// genPreviewInstance generates a random PreviewInstance.
func genPreviewInstance() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
		genInstanceStatus(),
		gen.AlphaString(),
		genTime(),
		genTime(),
	).Map(func(vals []interface{}) PreviewInstance {
		id := vals[0].(string)
		projectID := vals[1].(string)
		return PreviewInstance{
			ID:             id,
			ProjectID:      projectID,
			OwnerID:        vals[2].(string),
			Status:         vals[3].(InstanceStatus),
			BackingAddress: vals[4].(string),
			PublicBasePath: PublicBasePath(projectID, id),
			StartedAt:      vals[5].(time.Time),
			LastAccessedAt: vals[6].(time.Time),
		}
	})
}

// Serializing a PreviewInstance to JSON and back should produce an
// equivalent value.
func TestPreviewInstanceJSONRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("PreviewInstance survives JSON round-trip", prop.ForAll(
		func(inst PreviewInstance) bool {
			data, err := json.Marshal(inst)
			if err != nil {
				return false
			}
			var decoded PreviewInstance
			if err := json.Unmarshal(data, &decoded); err != nil {
				return false
			}
			return decoded.ID == inst.ID &&
				decoded.ProjectID == inst.ProjectID &&
				decoded.OwnerID == inst.OwnerID &&
				decoded.Status == inst.Status &&
				decoded.BackingAddress == inst.BackingAddress &&
				decoded.PublicBasePath == inst.PublicBasePath &&
				decoded.StartedAt.Equal(inst.StartedAt) &&
				decoded.LastAccessedAt.Equal(inst.LastAccessedAt)
		},
		genPreviewInstance(),
	))

	properties.TestingRun(t)
}

// Once an instance reaches a terminal state, no further transitions are
// legal.
func TestTerminalStatesAcceptNoTransitions(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("terminal states are absorbing", prop.ForAll(
		func(from, to InstanceStatus) bool {
			if !from.Terminal() {
				return true
			}
			return !from.CanTransition(to)
		},
		genInstanceStatus(),
		genInstanceStatus(),
	))

	properties.TestingRun(t)
}

func TestInstanceStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from InstanceStatus
		to   InstanceStatus
		want bool
	}{
		{"starting to running", InstanceStatusStarting, InstanceStatusRunning, true},
		{"starting to error", InstanceStatusStarting, InstanceStatusError, true},
		{"starting to stopped", InstanceStatusStarting, InstanceStatusStopped, true},
		{"running to stopped", InstanceStatusRunning, InstanceStatusStopped, true},
		{"running to error", InstanceStatusRunning, InstanceStatusError, true},
		{"running to starting", InstanceStatusRunning, InstanceStatusStarting, false},
		{"stopped to running", InstanceStatusStopped, InstanceStatusRunning, false},
		{"stopped to starting", InstanceStatusStopped, InstanceStatusStarting, false},
		{"error to running", InstanceStatusError, InstanceStatusRunning, false},
		{"error to stopped", InstanceStatusError, InstanceStatusStopped, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPublicBasePath(t *testing.T) {
	got := PublicBasePath("proj-1", "inst-9")
	want := "/projects/proj-1/preview/inst-9/proxy"
	if got != want {
		t.Errorf("PublicBasePath = %q, want %q", got, want)
	}
}
