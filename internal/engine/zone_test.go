package engine

import (
	"testing"
	"time"

	"github.com/sofemci/predictive/internal/database"
)

func testZone() *ZoneContext {
	return &ZoneContext{Zone: database.Zone{ID: 1, Number: 3, Name: "Zone 3", MaxMachines: 10, Active: true}}
}

func peer(id uint, p7 float64, temp *float64, lastFailure *time.Time) database.Machine {
	m := healthyMachine()
	m.ID = id
	m.ZoneID = uintPtr(1)
	m.FailureProbability7d = p7
	m.CurrentTemperature = temp
	m.LastFailureAt = lastFailure
	return m
}

func TestAnalyzeZone(t *testing.T) {
	tests := []struct {
		name          string
		peers         []database.Machine
		production    []database.ProductionExtrusion
		want          float64
		wantAnomalies int
	}{
		{
			name: "quiet zone",
			peers: []database.Machine{
				peer(2, 10, ptr(70), nil),
				peer(3, 5, ptr(72), nil),
			},
			production: []database.ProductionExtrusion{extrusionRecord(1, 1, 1000, 900, 10, 8)},
			want:       100,
		},
		{
			name:  "one peer at risk",
			peers: []database.Machine{peer(2, 40, nil, nil), peer(3, 39.99, nil, nil)},
			want:  90,
		},
		{
			name:          "two peers at risk",
			peers:         []database.Machine{peer(2, 45, nil, nil), peer(3, 80, nil, nil)},
			want:          80,
			wantAnomalies: 1,
		},
		{
			name: "recent failures",
			peers: []database.Machine{
				peer(2, 0, nil, daysAgo(2)),
				peer(3, 0, nil, daysAgo(6)),
				peer(4, 0, nil, daysAgo(8)),
			},
			want: 85,
		},
		{
			name: "one recent failure is not a pattern",
			peers: []database.Machine{
				peer(2, 0, nil, daysAgo(2)),
				peer(3, 0, nil, daysAgo(30)),
			},
			want: 100,
		},
		{
			name:  "hot zone ignores missing readings",
			peers: []database.Machine{peer(2, 0, ptr(90), nil), peer(3, 0, ptr(88), nil), peer(4, 0, nil, nil)},
			want:  90,
		},
		{
			name:       "low zone yield",
			production: []database.ProductionExtrusion{extrusionRecord(1, 1, 1000, 700, 0, 8)},
			want:       85,
		},
		{
			name: "under-utilized zone",
			production: []database.ProductionExtrusion{
				extrusionRecord(1, 2, 1000, 900, 0, 3),
				extrusionRecord(2, 1, 1000, 900, 0, 5),
			},
			want: 90,
		},
		{
			name: "every zone penalty",
			peers: []database.Machine{
				peer(2, 50, ptr(95), daysAgo(1)),
				peer(3, 60, ptr(95), daysAgo(1)),
			},
			production:    []database.ProductionExtrusion{extrusionRecord(1, 1, 1000, 500, 0, 1)},
			want:          30,
			wantAnomalies: 1,
		},
	}

	cfg := DefaultConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := zonedMachine()
			zone := testZone()
			zone.Peers = tt.peers
			r := AnalyzeZone(&m, zone, tt.production, cfg, testNow)
			if r.Score != tt.want {
				t.Errorf("score = %v, want %v (risks %v)", r.Score, tt.want, r.Risks)
			}
			if len(r.Anomalies) != tt.wantAnomalies {
				t.Errorf("anomalies = %v, want %d", r.Anomalies, tt.wantAnomalies)
			}
		})
	}
}

func TestAnalyzeZone_NeutralOutsideExtrusionZones(t *testing.T) {
	cfg := DefaultConfig()
	atRisk := []database.Machine{peer(2, 90, nil, nil), peer(3, 90, nil, nil)}

	printer := zonedMachine()
	printer.Section = database.SectionPrinting
	zone := testZone()
	zone.Peers = atRisk
	if r := AnalyzeZone(&printer, zone, nil, cfg, testNow); r.Score != 100 {
		t.Errorf("non-extrusion machine got %v, want 100", r.Score)
	}

	unzoned := healthyMachine()
	if r := AnalyzeZone(&unzoned, zone, nil, cfg, testNow); r.Score != 100 {
		t.Errorf("machine without zone got %v, want 100", r.Score)
	}

	zoned := zonedMachine()
	if r := AnalyzeZone(&zoned, nil, nil, cfg, testNow); r.Score != 100 {
		t.Errorf("missing zone context got %v, want 100", r.Score)
	}
}

func TestAnalyzeZone_ZeroCapacity(t *testing.T) {
	m := zonedMachine()
	zone := testZone()
	zone.Zone.MaxMachines = 0
	r := AnalyzeZone(&m, zone, []database.ProductionExtrusion{extrusionRecord(1, 1, 1000, 900, 0, 8)}, DefaultConfig(), testNow)
	if r.Score != 90 {
		t.Errorf("zone without capacity counts as under-utilized, got %v", r.Score)
	}
}

func TestDetectAnomalies(t *testing.T) {
	hot := func(m *database.Machine) { m.CurrentTemperature = ptr(95) }
	hungry := func(m *database.Machine) { m.CurrentPowerKWh = 61 }

	tests := []struct {
		name    string
		zoned   bool
		tweaks  []func(*database.Machine)
		recent  []database.ProductionExtrusion
		want    []string
		wantLen int
	}{
		{name: "nominal", zoned: true},
		{
			name:    "overheating and overconsumption",
			tweaks:  []func(*database.Machine){hot, hungry},
			want:    []string{"ALERT: simultaneous overheating"},
			wantLen: 1,
		},
		{
			name:    "overheating with poor zone yield",
			zoned:   true,
			tweaks:  []func(*database.Machine){hot},
			recent:  []database.ProductionExtrusion{extrusionRecord(1, 1, 1000, 700, 0, 8)},
			want:    []string{"CORRELATION: overheating"},
			wantLen: 1,
		},
		{
			name:    "overheating needs a zone",
			tweaks:  []func(*database.Machine){hot},
			recent:  []database.ProductionExtrusion{extrusionRecord(1, 1, 1000, 700, 0, 8)},
			wantLen: 0,
		},
		{
			name:    "overconsumption with high zone waste",
			zoned:   true,
			tweaks:  []func(*database.Machine){hungry},
			recent:  []database.ProductionExtrusion{extrusionRecord(1, 1, 1000, 1000, 45, 8)},
			want:    []string{"CORRELATION: overconsumption + high waste (4.5%)"},
			wantLen: 1,
		},
		{
			name:    "all three",
			zoned:   true,
			tweaks:  []func(*database.Machine){hot, hungry},
			recent:  []database.ProductionExtrusion{extrusionRecord(1, 1, 1000, 700, 50, 8)},
			want:    []string{"ALERT:", "CORRELATION: overheating", "CORRELATION: overconsumption"},
			wantLen: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := healthyMachine()
			if tt.zoned {
				m.ZoneID = uintPtr(1)
			}
			for _, tweak := range tt.tweaks {
				tweak(&m)
			}
			r := DetectAnomalies(&m, tt.recent)
			if len(r.Anomalies) != tt.wantLen || len(r.Risks) != tt.wantLen {
				t.Fatalf("got anomalies %v risks %v, want %d of each", r.Anomalies, r.Risks, tt.wantLen)
			}
			for _, prefix := range tt.want {
				if !containsPrefix(r.Anomalies, prefix) {
					t.Errorf("anomalies %v missing %q", r.Anomalies, prefix)
				}
			}
			if r.Score != 100 {
				t.Errorf("detector must not score, got %v", r.Score)
			}
		})
	}
}
