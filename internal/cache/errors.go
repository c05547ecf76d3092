package cache

import (
	"fmt"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperr.ErrStorage, op, err)
}
