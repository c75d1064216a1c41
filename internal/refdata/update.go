package refdata

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ldb/internal/config"
)

// Store is the write access the updater needs. Updates match existing rows
// by their key; rows in the sheet without a catalog counterpart are counted
// but not created.
type Store interface {
	UpdateClassRefData(rusName string, groupName, purpose *string) (bool, error)
	UpdateCharacteristicRefData(characteristic string, displayName *string, priority *int) (bool, error)
}

// Report counts what one refresh touched per tab.
type Report struct {
	ClassesUpdated           int
	ClassesUnmatched         int
	CharacteristicsUpdated   int
	CharacteristicsUnmatched int
}

// Updater merges the reference spreadsheet into the catalog: group and
// purpose for classes, display name and priority for characteristics.
type Updater struct {
	source Source
	store  Store
	cfg    config.Config
	logger zerolog.Logger
}

func NewUpdater(source Source, store Store, cfg config.Config, logger zerolog.Logger) *Updater {
	return &Updater{source: source, store: store, cfg: cfg, logger: logger}
}

func (u *Updater) Run(ctx context.Context) (Report, error) {
	var report Report

	classRows, err := u.source.Rows(ctx, u.cfg.ClassesTab)
	if err != nil {
		return report, fmt.Errorf("load classes tab: %w", err)
	}
	classes, err := ParseClasses(classRows)
	if err != nil {
		return report, err
	}
	for _, row := range classes {
		matched, err := u.store.UpdateClassRefData(row.RusName, row.GroupName, row.Purpose)
		if err != nil {
			return report, fmt.Errorf("update class %q: %w", row.RusName, err)
		}
		if matched {
			report.ClassesUpdated++
		} else {
			u.logger.Debug().Str("class", row.RusName).Msg("no catalog class for sheet row")
			report.ClassesUnmatched++
		}
	}

	charRows, err := u.source.Rows(ctx, u.cfg.CharacteristicsTab)
	if err != nil {
		return report, fmt.Errorf("load characteristics tab: %w", err)
	}
	characteristics, err := ParseCharacteristics(charRows)
	if err != nil {
		return report, err
	}
	for _, row := range characteristics {
		matched, err := u.store.UpdateCharacteristicRefData(row.Characteristic, row.DisplayName, row.Priority)
		if err != nil {
			return report, fmt.Errorf("update characteristic %q: %w", row.Characteristic, err)
		}
		if matched {
			report.CharacteristicsUpdated++
		} else {
			u.logger.Debug().Str("characteristic", row.Characteristic).Msg("no catalog characteristic for sheet row")
			report.CharacteristicsUnmatched++
		}
	}

	u.logger.Info().
		Int("classes_updated", report.ClassesUpdated).
		Int("classes_unmatched", report.ClassesUnmatched).
		Int("characteristics_updated", report.CharacteristicsUpdated).
		Int("characteristics_unmatched", report.CharacteristicsUnmatched).
		Msg("reference data refreshed")
	return report, nil
}
