package orchestrator

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in     string
		want   Command
		wantOK bool
	}{
		{"update schedule", Command{Kind: UpdateSchedule}, true},
		{"  update   x-ranking \n", Command{Kind: UpdateXRanking}, true},
		{"update season-info", Command{Kind: UpdateSeasonInfo}, true},
		{"archive x-ranking", Command{Kind: ArchiveXRanking}, true},
		{"archive x-ranking 18-Oct-2026", Command{Kind: ArchiveXRanking, Date: "18-Oct-2026"}, true},
		{"archive x-ranking 18-Oct-2026 extra", Command{}, false},
		{"update schedule now", Command{}, false},
		{"Update Schedule", Command{}, false},
		{"update", Command{}, false},
		{"", Command{}, false},
		{"delete everything", Command{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCommand(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ParseCommand(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
