package dataset

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
)

// MinPartitionRows is the smallest body row count Split accepts.
const MinPartitionRows = 1000

// Partitions holds the train, validate and test slices of one table.
// Every partition shares the header of the source table.
type Partitions struct {
	Train    *Table
	Validate *Table
	Test     *Table
}

// Get returns the partition with the given name.
func (p Partitions) Get(name schema.PartitionName) *Table {
	switch name {
	case schema.TrainPartition:
		return p.Train
	case schema.ValidatePartition:
		return p.Validate
	default:
		return p.Test
	}
}

// Counts returns the body row count of each partition.
func (p Partitions) Counts() schema.PartitionCounts {
	return schema.PartitionCounts{Train: p.Train.Len(), Validate: p.Validate.Len(), Test: p.Test.Len()}
}

// Split assigns the first 80% of rows to train, the next 10% to validate and
// the remainder to test. Rows are not shuffled.
func Split(t *Table) (Partitions, error) {
	n := t.Len()
	if n < MinPartitionRows {
		return Partitions{}, fmt.Errorf("%w: got %d rows, need at least %d", ErrTooFewRows, n, MinPartitionRows)
	}
	numTrain := n * 8 / 10
	numValidate := n / 10
	return Partitions{
		Train:    t.slice(0, numTrain),
		Validate: t.slice(numTrain, numTrain+numValidate),
		Test:     t.slice(numTrain+numValidate, n),
	}, nil
}

// WritePartitions writes all three partitions. Every file is staged next to
// its destination first; destinations are only replaced once all three are
// staged, and staged files are removed on failure.
func WritePartitions(p Partitions, paths contract.PartitionPaths) ([]schema.PartitionSummary, error) {
	staged := make(map[schema.PartitionName]string, len(schema.AllPartitions))
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}

	for _, name := range schema.AllPartitions {
		tmp, err := stage(paths.Path(name), p.Get(name))
		if err != nil {
			cleanup()
			return nil, err
		}
		staged[name] = tmp
	}

	summaries := make([]schema.PartitionSummary, 0, len(schema.AllPartitions))
	var errs []error
	for _, name := range schema.AllPartitions {
		dest := paths.Path(name)
		if err := os.Rename(staged[name], dest); err != nil {
			errs = append(errs, fmt.Errorf("failed to move %s into place: %w", dest, err))
			continue
		}
		delete(staged, name)
		part := p.Get(name)
		summaries = append(summaries, schema.PartitionSummary{
			Name:   name,
			Path:   dest,
			Rows:   part.Len(),
			Labels: LabelCounts(part),
		})
	}
	if len(errs) > 0 {
		cleanup()
		return nil, errors.Join(errs...)
	}
	return summaries, nil
}
