package reconcile

import (
	"context"

	"github.com/agentstation/studiosync/internal/utils/ptr"
	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/hierarchy"
	"github.com/agentstation/studiosync/pkg/logging"
)

// Applied describes a plan that landed in the catalog.
type Applied struct {
	Studio          catalogs.Studio `json:"studio" yaml:"studio"`
	CreatedParentID string          `json:"created_parent_id,omitempty" yaml:"created_parent_id,omitempty"`
}

// Apply writes plan to catalog: the parent is created or back-filled first,
// then the studio's fields and parent link land in one Update. If any step
// fails the earlier steps are undone, so either the whole plan lands or none
// of it does. Apply ignores cancellation of ctx once started.
func Apply(ctx context.Context, catalog catalogs.Writer, studio catalogs.Studio, plan Plan) (Applied, error) {
	ctx = context.WithoutCancel(ctx)
	logger := logging.FromContext(ctx)

	var undo []func() error
	rollback := func(cause error) error {
		errs := []error{cause}
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](); err != nil {
				logger.Error().Err(err).Msg("Rollback step failed")
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	update := plan.Update()
	var applied Applied

	if pc := plan.ParentChange; pc != nil {
		parentID := pc.ParentID
		switch pc.Kind {
		case hierarchy.Create:
			parent, err := catalog.Create(ctx, *pc.New)
			if err != nil {
				return Applied{}, errors.WrapResource("create", "studio", pc.New.Name, err)
			}
			parentID = parent.ID
			applied.CreatedParentID = parent.ID
			undo = append(undo, func() error { return catalog.Delete(ctx, parent.ID) })
			logger.Info().Str("parent_id", parent.ID).Str("parent", parent.Name).Msg("Created parent studio")

		case hierarchy.Existing:
			if bf := pc.Backfill; bf != nil {
				if _, err := catalog.Update(ctx, bf.StudioID, catalogs.Update{
					ExternalIDs: catalogs.ExternalIDs{bf.Source: bf.ExternalID},
				}); err != nil {
					return Applied{}, errors.WrapResource("update", "studio", bf.StudioID, err)
				}
				undo = append(undo, func() error {
					// An empty value removes the id again.
					_, err := catalog.Update(ctx, bf.StudioID, catalogs.Update{
						ExternalIDs: catalogs.ExternalIDs{bf.Source: ""},
					})
					return err
				})
			}
		}
		update.ParentID = ptr.String(parentID)
	}

	if update.IsEmpty() {
		applied.Studio = studio
		return applied, nil
	}

	updated, err := catalog.Update(ctx, studio.ID, update)
	if err != nil {
		return Applied{}, rollback(errors.WrapResource("update", "studio", studio.ID, err))
	}
	applied.Studio = updated
	return applied, nil
}
