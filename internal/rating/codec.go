package rating

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tt1717/battleserver/internal/logger"
)

// Ladder file layout: tab-separated, CRLF line endings, full rewrite on
// every save. The loader also accepts the legacy five-column layout
// (elo, username, W, L, T) and synthesizes the missing fields.

const ladderHeader = "Elo\tUsername\tW\tL\tT\tGlicko\tRating_Deviation\tGXE\tGames_Played\tLast_update\tH2H_Data"

func encodeLadder(rows []*Row) []byte {
	var sb strings.Builder
	sb.WriteString(ladderHeader)
	sb.WriteString("\r\n")
	for _, r := range rows {
		h2h, err := json.Marshal(r.H2H)
		if err != nil {
			h2h = []byte("{}")
		}
		fmt.Fprintf(&sb, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\t%d\t%s\t%s\r\n",
			strconv.FormatFloat(r.Elo, 'f', -1, 64),
			r.Name,
			r.W, r.L, r.T,
			strconv.FormatFloat(r.Glicko, 'f', 1, 64),
			strconv.FormatFloat(r.RD, 'f', 1, 64),
			r.GXE.String(),
			r.Games,
			r.LastUpdate,
			h2h,
		)
	}
	return []byte(sb.String())
}

func decodeLadder(data []byte, toID func(string) string, log *logger.Logger) []*Row {
	var rows []*Row
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "Elo\t") {
			continue
		}
		row := decodeRow(line, toID, log)
		if row != nil {
			rows = append(rows, row)
		}
	}
	return rows
}

func decodeRow(line string, toID func(string) string, log *logger.Logger) *Row {
	cols := strings.Split(line, "\t")

	parseF := func(s string, def float64) float64 {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		return def
	}
	parseI := func(s string) int {
		v, _ := strconv.Atoi(s)
		return v
	}

	switch {
	case len(cols) >= 9:
		r := &Row{
			Elo:    parseF(cols[0], seedElo),
			Name:   cols[1],
			W:      parseI(cols[2]),
			L:      parseI(cols[3]),
			T:      parseI(cols[4]),
			Glicko: parseF(cols[5], seedGlicko),
			RD:     parseF(cols[6], seedRD),
			Games:  parseI(cols[8]),
			H2H:    map[string]*Record{},
		}
		r.ID = toID(r.Name)
		if cols[7] == "Unknown" {
			r.GXE = GXE{Unknown: true}
		} else {
			r.GXE = GXE{Value: parseF(cols[7], 0)}
		}
		if len(cols) >= 10 {
			r.LastUpdate = cols[9]
		}
		if len(cols) >= 11 && cols[10] != "" {
			if err := json.Unmarshal([]byte(cols[10]), &r.H2H); err != nil {
				log.Warn("bad h2h data for %s, resetting: %v", r.Name, err)
				r.H2H = map[string]*Record{}
			}
			if r.H2H == nil {
				r.H2H = map[string]*Record{}
			}
		}
		return r

	case len(cols) == 5:
		// Legacy layout without glicko columns.
		r := &Row{
			Elo:  parseF(cols[0], seedElo),
			Name: cols[1],
			W:    parseI(cols[2]),
			L:    parseI(cols[3]),
			T:    parseI(cols[4]),
			H2H:  map[string]*Record{},
		}
		r.ID = toID(r.Name)
		r.Games = r.W + r.L + r.T
		r.Glicko = seedGlicko
		r.RD = float64(130 - 2*r.Games)
		if r.RD < 30 {
			r.RD = 30
		}
		r.GXE = glixare(r.Glicko, r.RD)
		return r

	default:
		log.Warn("skipping malformed ladder row: %q", line)
		return nil
	}
}
