package apperr

import "github.com/grocyhq/grocy-pos/pkg/zerror"

const (
	ValidationErrorCode    = "VALIDATION_FAILED"
	ProductNotFoundCode    = "PRODUCT_NOT_FOUND"
	BarcodeConflictCode    = "BARCODE_CONFLICT"
	StorageFailedCode      = "STORAGE_FAILED"
	EmptySaleCode          = "EMPTY_SALE"
	PartialSaleAppliedCode = "SALE_PARTIALLY_APPLIED"
	MalformedCSVCode       = "MALFORMED_CSV"
)

var (
	ValidationErr      = zerror.NewValidationFailed(ValidationErrorCode, "validation error")
	ProductNotFoundErr = zerror.NewNotFound(ProductNotFoundCode, "product not found")
	BarcodeConflictErr = zerror.NewConflict(BarcodeConflictCode, "another product already uses this barcode")
	StorageErr         = zerror.NewInternalServerError(StorageFailedCode, "inventory storage failure")
	EmptySaleErr       = zerror.NewBadRequest(EmptySaleCode, "sale contains no items")
	MalformedCSVErr    = zerror.NewUnprocessableEntity(MalformedCSVCode, "csv payload is malformed")

	// PartialSaleErr means the inventory write succeeded but the ledger
	// append did not: stock is already adjusted and the sale is unrecorded.
	// It must reach the caller under its own code so the condition can be
	// reconciled manually, never folded into StorageErr.
	PartialSaleErr = zerror.NewInternalServerError(PartialSaleAppliedCode,
		"inventory updated but sale not recorded; manual reconciliation required")
)
