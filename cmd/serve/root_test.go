package serve

import (
	"testing"

	"github.com/ValentinKolb/opexec/rpc/common"
	"github.com/google/go-cmp/cmp"
)

func TestParseShards(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []common.ServerShard
		wantErr  bool
	}{
		{
			name:     "single",
			input:    "100=lstore",
			expected: []common.ServerShard{{ShardID: 100, Type: common.ShardTypeLocalStore}},
		},
		{
			name:  "mixed with spaces",
			input: "100=lstore, 200 = bstore",
			expected: []common.ServerShard{
				{ShardID: 100, Type: common.ShardTypeLocalStore},
				{ShardID: 200, Type: common.ShardTypeBoltStore},
			},
		},
		{name: "missing type", input: "100", wantErr: true},
		{name: "invalid id", input: "x=lstore", wantErr: true},
		{name: "unknown type", input: "100=dstore", wantErr: true},
		{name: "duplicate id", input: "1=lstore,1=bstore", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseShards(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected an error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseShards() returned error: %v", err)
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("shards mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
