package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CSVSink writes one file per settlement record under a directory, named
// round_<r>_period_<p>.csv.
type CSVSink struct {
	Dir string
}

func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CSVSink{Dir: dir}, nil
}

func (s *CSVSink) Append(rec Record) error {
	path := filepath.Join(s.Dir, fmt.Sprintf("round_%d_period_%d.csv", rec.Round, rec.Period))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"role_id",
		"fuel",
		"zone",
		"participant",
		"bid_mw",
		"bid_price",
		"auto_bid",
		"dispatch_mw",
		"price_south",
		"price_north",
		"transfer_mw",
		"revenue",
		"profit",
		"cum_revenue",
		"cum_profit",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range rec.Rows {
		participant := ""
		if r.Participant != 0 {
			participant = strconv.Itoa(r.Participant)
		}
		row := []string{
			strconv.Itoa(r.RoleID),
			string(r.Fuel),
			r.Zone,
			participant,
			fmtFloat(r.BidMW),
			fmtFloat(r.BidPrice),
			strconv.FormatBool(r.AutoBid),
			fmtFloat(r.DispatchMW),
			fmtFloat(rec.PriceSouth),
			fmtFloat(rec.PriceNorth),
			fmtFloat(rec.TransferMW),
			fmtFloat(r.Revenue),
			fmtFloat(r.Profit),
			fmtFloat(r.CumRevenue),
			fmtFloat(r.CumProfit),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
