package integrations

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudEndpoint(t *testing.T) {
	encode := func(payload string) string {
		return base64.StdEncoding.EncodeToString([]byte(payload))
	}

	tests := []struct {
		name    string
		cloudID string
		want    string
		wantErr bool
	}{
		{
			name:    "standard deployment",
			cloudID: "prod-siem:" + encode("us-east-1.aws.found.io$abc123$def456"),
			want:    "https://abc123.us-east-1.aws.found.io",
		},
		{
			name:    "host with port",
			cloudID: "lab:" + encode("cloud.example.com:9243$esid$kbid"),
			want:    "https://esid.cloud.example.com:9243",
		},
		{
			name:    "missing separator",
			cloudID: encode("host$es$kb"),
			wantErr: true,
		},
		{
			name:    "not base64",
			cloudID: "name:!!!",
			wantErr: true,
		},
		{
			name:    "too few segments",
			cloudID: "name:" + encode("hostonly"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cloudEndpoint(tt.cloudID)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://splunk.example.com:8089", baseURL("splunk.example.com:8089"))
	assert.Equal(t, "http://localhost:8089", baseURL("http://localhost:8089/"))
}
