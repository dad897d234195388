package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// CronParser parses five-field expressions and descriptors such as
// "@every 1m" or "@hourly".
type CronParser struct {
	parser cron.Parser
}

func NewCronParser() *CronParser {
	return &CronParser{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Next returns the first activation after from.
func (p *CronParser) Next(expr string, from time.Time) (time.Time, error) {
	schedule, err := p.parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule.Next(from), nil
}

func (p *CronParser) Validate(expr string) error {
	_, err := p.parser.Parse(expr)
	return err
}
