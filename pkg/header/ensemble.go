package header

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/apperrors"
	"github.com/smetalab/estimate-engine/pkg/models"
	"github.com/smetalab/estimate-engine/pkg/worksheet"
)

const (
	// DefaultScanWindow is how many leading rows are examined for a header.
	DefaultScanWindow = 50

	consensusBonusStep = 0.1
	consensusBonusCap  = 0.3
	maxRunnerUps       = 5
)

// serviceTextBlacklist excludes rows of legal boilerplate, tool banners and
// disclaimers from header candidacy regardless of score.
var serviceTextBlacklist = []string{
	"составлен в ценах",
	"составлена в ценах",
	"основание:",
	"договор",
	"гранд-смета",
	"smeta.ru",
	"версия программы",
	"программный комплекс",
	"утверждаю",
	"согласовано",
	"based on",
	"software version",
}

// RankedCandidate is a header candidate with its final ensemble score.
type RankedCandidate struct {
	Candidate models.HeaderCandidate
	Score     float64
}

// Detection is the ensemble's output: the best header row plus runner-ups for
// human review.
type Detection struct {
	Best      RankedCandidate
	RunnerUps []RankedCandidate
}

// Ensemble combines several independent header detectors.
type Ensemble struct {
	detectors  []Detector
	scanWindow int
	logger     *zap.Logger
}

// NewEnsemble creates an ensemble with the standard detector set in fixed
// registration order.
func NewEnsemble(scanWindow int, logger *zap.Logger) *Ensemble {
	if scanWindow < 1 {
		scanWindow = DefaultScanWindow
	}
	return &Ensemble{
		detectors: []Detector{
			&KeywordDetector{},
			&FilledColumnsDetector{},
			&DataTransitionDetector{},
		},
		scanWindow: scanWindow,
		logger:     logger.Named("header-ensemble"),
	}
}

// Detect picks the most likely header row. It returns ErrEmptyWorksheet when
// no row in the scan window has any filled cells and ErrNoHeader when rows
// exist but nothing qualifies as a header. Callers must treat both as hard
// import failures.
func (e *Ensemble) Detect(sheet worksheet.Sheet) (*Detection, error) {
	sctx := &ScanContext{
		Sheet:      sheet,
		Columns:    worksheet.ColumnLetters(sheet.HighestColumn()),
		ScanWindow: e.scanWindow,
	}
	if sheet.MaxRow() < sctx.ScanWindow {
		sctx.ScanWindow = sheet.MaxRow()
	}

	anyFilled := false
	for row := 1; row <= sctx.ScanWindow; row++ {
		n := len(filledCells(sctx, row))
		if n > 0 {
			anyFilled = true
		}
		if n > sctx.MaxFilled {
			sctx.MaxFilled = n
		}
	}
	if !anyFilled {
		return nil, apperrors.ErrEmptyWorksheet
	}

	// Group candidates by row; a row is a candidate if any detector
	// flagged it.
	byRow := make(map[int]*models.HeaderCandidate)
	for _, d := range e.detectors {
		for _, c := range d.DetectCandidates(sctx) {
			if isServiceText(c) {
				continue
			}
			merged, ok := byRow[c.Row]
			if !ok {
				cc := c
				byRow[c.Row] = &cc
				merged = &cc
			}
			merged.DetectorScores[d.Name()] = d.ScoreCandidate(c, sctx)
		}
	}
	if len(byRow) == 0 {
		return nil, apperrors.ErrNoHeader
	}

	ranked := make([]RankedCandidate, 0, len(byRow))
	for _, c := range byRow {
		ranked = append(ranked, RankedCandidate{
			Candidate: *c,
			Score:     e.combinedScore(*c),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		// Earlier header preferred on ties.
		return ranked[i].Candidate.Row < ranked[j].Candidate.Row
	})

	best := ranked[0]
	runnerUps := ranked[1:]
	if len(runnerUps) > maxRunnerUps {
		runnerUps = runnerUps[:maxRunnerUps]
	}

	e.logger.Info("header row detected",
		zap.Int("row", best.Candidate.Row),
		zap.Float64("score", best.Score),
		zap.Int("detectors", len(best.Candidate.DetectorScores)),
		zap.Int("runner_ups", len(runnerUps)))

	return &Detection{Best: best, RunnerUps: runnerUps}, nil
}

// combinedScore is the weighted average of per-detector scores over detectors
// that flagged the row, plus a consensus bonus when several agreed. Capped at 1.
func (e *Ensemble) combinedScore(c models.HeaderCandidate) float64 {
	var weighted, totalWeight float64
	flagged := 0
	for _, d := range e.detectors {
		score, ok := c.DetectorScores[d.Name()]
		if !ok {
			continue
		}
		weighted += score * d.Weight()
		totalWeight += d.Weight()
		flagged++
	}
	if totalWeight == 0 {
		return 0
	}

	score := weighted / totalWeight
	if flagged > 1 {
		bonus := float64(flagged-1) * consensusBonusStep
		if bonus > consensusBonusCap {
			bonus = consensusBonusCap
		}
		score += bonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

func isServiceText(c models.HeaderCandidate) bool {
	for _, v := range c.RawValues {
		n := strings.ToLower(v)
		for _, blocked := range serviceTextBlacklist {
			if strings.Contains(n, blocked) {
				return true
			}
		}
	}
	return false
}
