package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ecopool/league-server/internal/obslog"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Participant is one row of the participants section.
type Participant struct {
	First     string
	Last      string
	Email     string
	BuyInPaid bool
}

// Pair is one team of the partners section. Scores holds per-match points;
// missing matches stay blank in the sheet.
type Pair struct {
	TeamNum      int
	Player1First string
	Player1Last  string
	Player2First string
	Player2Last  string
	Scores       []int
	Total        int
	Wins         int
	Losses       int
}

// Matchup is one row of the matchups section.
type Matchup struct {
	SetNum   int
	Team1Num int
	Team2Num int
}

// Sheet layout anchors matching the league's Google Sheets template.
const (
	partnersHeaderRow = 20
	matchupsHeaderRow = 40
	maxMatchColumns   = 4
	sheetNameLimit    = 31
)

// WeekWorkbook builds the weekly schedule workbook and returns the raw .xlsx
// bytes: participants on rows 1-19, partners on 20-39, matchups from 40.
func WeekWorkbook(weekName string, participants []Participant, pairs []Pair, matchups []Matchup) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := weekName
	if len(sheet) > sheetNameLimit {
		sheet = sheet[:sheetNameLimit]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	setRow := func(row int, values ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	// Participants
	if err := setRow(1, "Participants"); err != nil {
		return nil, err
	}
	if err := setRow(2, "#", "First", "Last", "Email", "Buy-In Paid"); err != nil {
		return nil, err
	}
	for i, p := range participants {
		row := 3 + i
		if row >= partnersHeaderRow {
			break
		}
		paid := "No"
		if p.BuyInPaid {
			paid = "Yes"
		}
		if err := setRow(row, i+1, p.First, p.Last, p.Email, paid); err != nil {
			return nil, err
		}
	}

	// Partners: two rows per pair, scores on the first.
	if err := setRow(partnersHeaderRow, "Partners"); err != nil {
		return nil, err
	}
	if err := setRow(partnersHeaderRow+1, "Team #", "First", "Last",
		"Match 1", "Match 2", "Match 3", "Match 4", "Total", "Wins", "Losses"); err != nil {
		return nil, err
	}
	row := partnersHeaderRow + 2
	for _, pair := range pairs {
		if row+1 >= matchupsHeaderRow {
			break
		}
		values := []any{pair.TeamNum, pair.Player1First, pair.Player1Last}
		for i := 0; i < maxMatchColumns; i++ {
			if i < len(pair.Scores) {
				values = append(values, pair.Scores[i])
			} else {
				values = append(values, "")
			}
		}
		values = append(values, pair.Total, pair.Wins, pair.Losses)
		if err := setRow(row, values...); err != nil {
			return nil, err
		}
		if err := setRow(row+1, "", pair.Player2First, pair.Player2Last); err != nil {
			return nil, err
		}
		row += 2
	}

	// Matchups
	if err := setRow(matchupsHeaderRow, "Matchups"); err != nil {
		return nil, err
	}
	if err := setRow(matchupsHeaderRow+1, "Set #", "Team 1", "Team 2"); err != nil {
		return nil, err
	}
	for i, m := range matchups {
		if err := setRow(matchupsHeaderRow+2+i, m.SetNum, m.Team1Num, m.Team2Num); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	obslog.L().Info("week_export",
		zap.String("week", weekName),
		zap.Int("participants", len(participants)),
		zap.Int("pairs", len(pairs)),
		zap.Int("matchups", len(matchups)),
	)
	return buf.Bytes(), nil
}

var unsafeFilename = regexp.MustCompile(`[\s()]+`)

// SafeFilename converts a week name to a download filename without spaces or
// parentheses.
func SafeFilename(weekName string) string {
	name := unsafeFilename.ReplaceAllString(weekName, "_")
	name = strings.Trim(name, "_")
	return name + ".xlsx"
}
