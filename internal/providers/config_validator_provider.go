package providers

import (
	"antislack/internal/structures"
	"errors"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func (v *CnfValidator) Validate() error {
	val := validate.Struct(v.conf)
	if !val.Validate() {
		return val.Errors
	}
	if v.conf.Storage.SyncDriver != "memory" && v.conf.Storage.SyncDsn == "" {
		return errors.New("storage.syncDsn is required for driver " + v.conf.Storage.SyncDriver)
	}
	if v.conf.Backup.Type == "s3" && (v.conf.Backup.S3.Endpoint == "" || v.conf.Backup.S3.Bucket == "") {
		return errors.New("backup.s3 endpoint and bucket are required for s3 backups")
	}
	return nil
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}
