package service

import (
	"context"
	"fmt"

	"chainaudit/internal/audittrail/registry"
	dErrors "chainaudit/pkg/domain-errors"
)

// resolveForeignKey reads the stored value of fk on record recordID. Any
// lookup failure, including a missing row, is reported as an invalid model;
// the cause stays in the chain.
func (s *Service) resolveForeignKey(ctx context.Context, model registry.TrackedModel, recordID, fk string) (string, bool, error) {
	value, present, err := model.FetchOwnerID(ctx, recordID, fk)
	if err != nil {
		s.logger.DebugContext(ctx, "foreign key lookup failed",
			"model", model.Name(),
			"record_id", recordID,
			"foreign_key", fk,
			"error", err,
		)
		return "", false, dErrors.Wrap(err, dErrors.CodeInvalidModel, fmt.Sprintf("cannot load %s %q", model.Name(), recordID))
	}
	return value, present, nil
}
