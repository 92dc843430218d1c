// Package storage provides object storage behind a single interface.
//
// Three backends are available:
//
//   - S3Storage: Amazon S3 and S3-compatible services (MinIO, rustfs).
//   - NewOCI: Oracle Cloud Object Storage through its S3 compatibility API.
//   - GCSStorage: Google Cloud Storage.
//
// # Basic Usage
//
//	store, err := storage.New(storage.Config{
//		Bucket:    "letters",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
//		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
//	})
//	if err != nil {
//		return err
//	}
//
//	info, err := store.Put(ctx, "approval-letters/100_Memo.pdf", f, size,
//		storage.WithContentType("application/pdf"),
//	)
//
//	objects, err := store.List(ctx, "approval-letters/100_")
//
// # Oracle Cloud
//
// The OCI endpoint is derived from the tenancy namespace and region:
//
//	store, err := storage.NewOCI(storage.Config{
//		Namespace: "axaxnpcrorw5",
//		Region:    "us-ashburn-1",
//		Bucket:    "letters",
//		AccessKey: key,    // customer secret key id
//		SecretKey: secret, // customer secret key
//	})
//
// # Errors
//
// Provider errors are normalised to sentinel values. Use errors.Is:
//
//	if errors.Is(err, storage.ErrNotFound) { ... }
package storage
