package repository

import (
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultPhotoContentType = "image/jpeg"

// PhotoRepository keeps listing photos in a GridFS bucket.
type PhotoRepository struct {
	DB *mongo.Database
}

func NewPhotoRepository(client *mongo.Client, dbName string) *PhotoRepository {
	return &PhotoRepository{DB: client.Database(dbName)}
}

// UploadPhoto streams the photo into GridFS and returns the new file id.
func (r *PhotoRepository) UploadPhoto(file io.Reader, filename, contentType string) (string, error) {
	bucket, err := gridfs.NewBucket(r.DB, options.GridFSBucket().SetName("listing_photos"))
	if err != nil {
		return "", fmt.Errorf("PhotoRepository.UploadPhoto: %w", err)
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	stream, err := bucket.OpenUploadStream(filename, opts)
	if err != nil {
		return "", fmt.Errorf("PhotoRepository.UploadPhoto: %w", err)
	}
	defer stream.Close()

	if _, err := io.Copy(stream, file); err != nil {
		return "", fmt.Errorf("PhotoRepository.UploadPhoto: copy: %w", err)
	}

	return stream.FileID.(primitive.ObjectID).Hex(), nil
}

// DownloadPhoto returns the photo bytes and the content type recorded at upload.
func (r *PhotoRepository) DownloadPhoto(photoID string) ([]byte, string, error) {
	bucket, err := gridfs.NewBucket(r.DB, options.GridFSBucket().SetName("listing_photos"))
	if err != nil {
		return nil, "", fmt.Errorf("PhotoRepository.DownloadPhoto: %w", err)
	}

	objID, err := primitive.ObjectIDFromHex(photoID)
	if err != nil {
		return nil, "", fmt.Errorf("PhotoRepository.DownloadPhoto: %w", err)
	}

	stream, err := bucket.OpenDownloadStream(objID)
	if err == gridfs.ErrFileNotFound {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("PhotoRepository.DownloadPhoto: %w", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, "", fmt.Errorf("PhotoRepository.DownloadPhoto: read: %w", err)
	}

	contentType := defaultPhotoContentType
	if f := stream.GetFile(); f != nil && f.Metadata != nil {
		if ct, ok := f.Metadata.Lookup("contentType").StringValueOK(); ok && ct != "" {
			contentType = ct
		}
	}
	return data, contentType, nil
}

// DeletePhoto removes a stored photo. Missing files are ignored.
func (r *PhotoRepository) DeletePhoto(photoID string) error {
	bucket, err := gridfs.NewBucket(r.DB, options.GridFSBucket().SetName("listing_photos"))
	if err != nil {
		return fmt.Errorf("PhotoRepository.DeletePhoto: %w", err)
	}
	objID, err := primitive.ObjectIDFromHex(photoID)
	if err != nil {
		return fmt.Errorf("PhotoRepository.DeletePhoto: %w", err)
	}
	if err := bucket.Delete(objID); err != nil && err != gridfs.ErrFileNotFound {
		return fmt.Errorf("PhotoRepository.DeletePhoto: %w", err)
	}
	return nil
}
