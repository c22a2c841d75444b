package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and run tracking.
	DatabaseBackend string

	// DatasetKind represents which rows a prepared dataset is built from.
	DatasetKind string

	// RowPolicy represents how the reshaper treats an anomalous row.
	RowPolicy string

	// PartitionName identifies one of the three dataset partitions.
	PartitionName string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All dataset kinds supported.
const (
	IssuesKind DatasetKind = "issues"
	PrsKind    DatasetKind = "prs"
)

// All row policies supported.
const (
	DropPolicy    RowPolicy = "drop"
	FailPolicy    RowPolicy = "fail"
	DefaultPolicy RowPolicy = "default"
)

// All partitions, in file order.
const (
	TrainPartition    PartitionName = "train"
	ValidatePartition PartitionName = "validate"
	TestPartition     PartitionName = "test"
)

// AllPartitions lists the partitions in the order rows are assigned to them.
var AllPartitions = []PartitionName{TrainPartition, ValidatePartition, TestPartition}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidDatasetKinds lists all valid dataset kinds.
var ValidDatasetKinds = map[DatasetKind]struct{}{
	IssuesKind: {},
	PrsKind:    {},
}

// ValidRowPolicies lists all valid row policies.
var ValidRowPolicies = map[RowPolicy]struct{}{
	DropPolicy:    {},
	FailPolicy:    {},
	DefaultPolicy: {},
}

// RowPolicies groups the policy for each kind of row anomaly.
type RowPolicies struct {
	UnmappedLabel RowPolicy `json:"unmapped_label"` // remap returned a blank label
	Malformed     RowPolicy `json:"malformed"`      // wrong field count or unparseable CombinedID
	EmptyFiles    RowPolicy `json:"empty_files"`    // pull request without changed files
}

// DefaultRowPolicies returns the policies matching the historical behavior:
// unmapped labels are dropped, empty file lists are zero-filled and malformed
// rows fail the run.
func DefaultRowPolicies() RowPolicies {
	return RowPolicies{
		UnmappedLabel: DropPolicy,
		Malformed:     FailPolicy,
		EmptyFiles:    DefaultPolicy,
	}
}
