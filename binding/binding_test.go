package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	data := map[string]any{
		"asset": map[string]any{
			"id":   "3fa85f64-5717-4562-b3fc-2c963f66afa6",
			"tags": []any{"lab", "loaner"},
		},
		"site": map[string]string{"name": "Gym"},
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "PROPERTY OF", "PROPERTY OF"},
		{"single placeholder", "${asset.id}", "3fa85f64-5717-4562-b3fc-2c963f66afa6"},
		{"spaces inside braces", "id=${ asset.id }", "id=3fa85f64-5717-4562-b3fc-2c963f66afa6"},
		{"index access", "${asset.tags[1]}", "loaner"},
		{"string map", "${site.name} storage", "Gym storage"},
		{"unknown path kept", "${asset.owner}", "${asset.owner}"},
		{"out of range kept", "${asset.tags[5]}", "${asset.tags[5]}"},
		{"malformed index kept", "${asset.tags[x]}", "${asset.tags[x]}"},
		{"multiple", "${site.name}/${asset.tags[0]}", "Gym/lab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpolate(tt.in, data))
		})
	}
}

func TestInterpolateNilData(t *testing.T) {
	assert.Equal(t, "${asset.id}", Interpolate("${asset.id}", nil))
}
