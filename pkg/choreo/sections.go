package choreo

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-groove/internal/log"
	"github.com/teslashibe/go-groove/pkg/actuator"
	"github.com/teslashibe/go-groove/pkg/beat"
)

// ErrInvalidBeatRange is returned for negative or inverted beat indices.
// These are rejected outright, never silently fixed; merely out-of-range
// indices are clamped instead (section boundaries are advisory).
var ErrInvalidBeatRange = errors.New("choreo: invalid beat range")

// Section is a contiguous beat range with its choreography mode and the
// wall-time window it covers.
type Section struct {
	StartBeat int
	EndBeat   int // exclusive
	Mode      actuator.Mode
	StartTime float64
	EndTime   float64
}

// Beats returns the section length in beats.
func (s Section) Beats() int { return s.EndBeat - s.StartBeat }

// AnomalyRecorder receives non-fatal anomalies (e.g. clamped beat
// indices) for persistence. A nil recorder is always safe.
type AnomalyRecorder interface {
	RecordAnomaly(kind, detail string)
}

// Mapper partitions a beat timeline into proportional sections and
// assigns each a choreography mode.
type Mapper struct {
	Timeline beat.Timeline
	Tempo    beat.TempoEstimate

	// Anomalies, when set, records clamped beat lookups.
	Anomalies AnomalyRecorder
}

// NewMapper creates a mapper over a timeline.
func NewMapper(timeline beat.Timeline, tempo beat.TempoEstimate) *Mapper {
	return &Mapper{Timeline: timeline, Tempo: tempo}
}

// TotalBeats returns the number of beats in the timeline.
func (m *Mapper) TotalBeats() int { return m.Timeline.Len() }

// Partition splits [0, N) into `into` contiguous non-overlapping beat
// ranges using floor division for the per-section size; the final
// section absorbs any remainder so the ranges exactly tile the timeline.
// With fewer beats than sections, leading ranges are empty but still
// contiguous.
func (m *Mapper) Partition(into int) []Section {
	n := m.Timeline.Len()
	size := n / into

	sections := make([]Section, into)
	start := 0
	for i := range sections {
		end := start + size
		if i == into-1 {
			end = n
		}
		sec := Section{StartBeat: start, EndBeat: end}
		sec.Mode = m.ModeFor(sec.Beats())
		sec.StartTime, sec.EndTime, _ = m.TimeRange(start, end)
		sections[i] = sec
		start = end
	}
	return sections
}

// ModeFor maps a beat-range length to a choreography mode. The mapping
// is coarse on purpose: more beats available means room for a
// longer-form movement, nothing more precise than that.
func (m *Mapper) ModeFor(beatRange int) actuator.Mode {
	switch {
	case beatRange <= 2:
		return actuator.ModeStand
	case beatRange <= 4:
		return actuator.ModeDance1
	case beatRange <= 8:
		return actuator.ModeDance2
	default:
		return actuator.ModeStand
	}
}

// TimeRange returns the wall-time window in seconds for the beat range
// [startBeat, endBeat). Negative or inverted indices are rejected with
// ErrInvalidBeatRange. Indices past the end of the timeline are clamped
// to the last valid beat and recorded as a non-fatal anomaly - upstream
// beat counts may be shorter than a caller planned for.
func (m *Mapper) TimeRange(startBeat, endBeat int) (float64, float64, error) {
	if startBeat < 0 || endBeat < 0 {
		return 0, 0, fmt.Errorf("%w: negative index (start=%d end=%d)", ErrInvalidBeatRange, startBeat, endBeat)
	}
	if endBeat < startBeat {
		return 0, 0, fmt.Errorf("%w: inverted (start=%d end=%d)", ErrInvalidBeatRange, startBeat, endBeat)
	}

	n := m.Timeline.Len()
	if startBeat >= n {
		m.recordClamp("start", startBeat, n)
		startBeat = n - 1
	}
	if endBeat > n {
		m.recordClamp("end", endBeat, n)
		endBeat = n
	}

	startTime := m.Timeline[startBeat]
	endIdx := endBeat - 1
	if endIdx < 0 {
		endIdx = 0
	}
	return startTime, m.Timeline[endIdx], nil
}

func (m *Mapper) recordClamp(which string, index, total int) {
	log.Warn("beat index clamped", "which", which, "index", index, "total_beats", total)
	if m.Anomalies != nil {
		m.Anomalies.RecordAnomaly("beat_index_clamped",
			fmt.Sprintf("%s beat %d exceeds available beats %d", which, index, total))
	}
}
