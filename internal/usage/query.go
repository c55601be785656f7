package usage

import (
	"context"
	"time"

	"github.com/tsanders-rh/lactl/pkg/types"
)

const (
	// QueryBillableByDataType sums billable ingestion per data type in MB
	QueryBillableByDataType = `Usage
| where IsBillable == true
| summarize IngestionVolumeMB = sum(Quantity) by DataType`

	// QueryBilledBytesFallback sums billed bytes across every table. Used when
	// the Usage table returns nothing.
	QueryBilledBytesFallback = `union withsource = _TableName *
| summarize TotalBytes = sum(_BilledSize)`
)

// QueryClient runs KQL against a workspace identified by its customer ID
type QueryClient interface {
	Query(ctx context.Context, customerID, query string, start, end time.Time) ([]map[string]any, error)
}

// TableLister lists the tables of a workspace with their billing plans
type TableLister interface {
	ListTables(ctx context.Context, ws types.Workspace) ([]types.Table, error)
}

// Window is a half-open UTC interval [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// NewWindow returns the window of the given number of days ending at now
func NewWindow(now time.Time, days int) Window {
	end := now.UTC()
	return Window{
		Start: end.AddDate(0, 0, -days),
		End:   end,
		Days:  days,
	}
}
