package entity

import (
	"context"

	"github.com/questx-lab/luckydraw/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&User{},
		&WheelSegment{},
		&AppConfig{},
		&Entry{},
		&Draw{},
		&Winner{},
		&AuditEvent{},
	)
}
