package service

import (
	"errors"

	"github.com/grocyhq/grocy-pos/internal/apperr"
	"github.com/grocyhq/grocy-pos/pkg/zerror"
)

// storeErr passes domain errors through untouched and folds everything else
// (I/O, codec) into the storage error code.
func storeErr(err error) error {
	var zErr zerror.ZError
	if errors.As(err, &zErr) {
		return err
	}
	return apperr.StorageErr.WrapParent(err)
}
