package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr string
	}{
		{name: "base images", rule: Rule{Name: "a", Kind: KindBaseImages}},
		{name: "no name", rule: Rule{Kind: KindBaseImages}, wantErr: "has no name"},
		{name: "unknown kind", rule: Rule{Name: "a", Kind: "bogus"}, wantErr: `unknown kind "bogus"`},
		{name: "keywords", rule: Rule{Name: "a", Kind: KindRequiredInstructions}, wantErr: "keywords is required"},
		{name: "line", rule: Rule{Name: "a", Kind: KindExactLine, Line: "  "}, wantErr: "line is required"},
		{name: "image", rule: Rule{Name: "a", Kind: KindImageExists}, wantErr: "image is required"},
		{name: "tag", rule: Rule{Name: "a", Kind: KindImageDeleted, Image: "x"}, wantErr: "tag is required"},
		{name: "url", rule: Rule{Name: "a", Kind: KindHTTPEndpoint}, wantErr: "url is required"},
		{
			name:    "ports shape",
			rule:    Rule{Name: "a", Kind: KindContainerRunning, Image: "x", Ports: "8080:8080"},
			wantErr: "ports must look like host->container",
		},
		{name: "negative", rule: Rule{Name: "a", Kind: KindFileTransfer, MinRun: -1}, wantErr: "must not be negative"},
		{name: "running ok", rule: Rule{Name: "a", Kind: KindContainerRunning, Image: "x", Ports: "8080->8080"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestKindNeedsDockerfile(t *testing.T) {
	assert.True(t, KindBaseImages.NeedsDockerfile())
	assert.True(t, KindBaseImagesPresent.NeedsDockerfile())
	assert.False(t, KindImageExists.NeedsDockerfile())
	assert.False(t, KindHTTPEndpoint.NeedsDockerfile())
}

func TestRuleDefaults(t *testing.T) {
	assert.Equal(t, 2, Rule{}.minFrom())
	assert.Equal(t, DefaultAllowedBaseImages, Rule{}.allowedPrefixes())
	assert.Equal(t, "x", Rule{}.failure("x"))
	assert.Equal(t, "y", Rule{Message: "y"}.failure("x"))
}
