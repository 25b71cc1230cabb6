package service

import (
	"Murmur/internal/api/dto"
	"Murmur/internal/pkg/consts"
	"Murmur/internal/pkg/minio"
	"Murmur/internal/pkg/redis"
	"bytes"
	"context"
	"image"
	"io"
	log "log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const thumbnailMaxWidth = 320

// MediaService 附件上传：写入 MinIO 并登记暂存元数据，等待消息认领
type MediaService interface {
	Upload(ctx context.Context, fileName string, size int64, reader io.Reader) (*dto.MediaUploadResultDTO, error)
}

type mediaServiceImpl struct {
}

func NewMediaService() MediaService {
	return &mediaServiceImpl{}
}

func (s *mediaServiceImpl) Upload(ctx context.Context, fileName string, size int64, reader io.Reader) (*dto.MediaUploadResultDTO, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	contentType := http.DetectContentType(data)
	isImage := strings.HasPrefix(contentType, consts.MimePrefixImage)
	isVideo := strings.HasPrefix(contentType, consts.MimePrefixVideo)
	isAudio := strings.HasPrefix(contentType, consts.MimePrefixAudio)
	isGeneric := contentType == "application/octet-stream" || contentType == "application/pdf" || contentType == "application/zip"
	if !isImage && !isVideo && !isAudio && !isGeneric {
		return nil, ErrFileNotSupported
	}

	ext := path.Ext(fileName)
	objectName := time.Now().Format("2006/01/02/") + uuid.NewString() + ext

	fileKey, err := minio.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		log.ErrorContext(ctx, "MinIO 上传失败", "fileName", fileName, "err", err)
		return nil, UnExpectedError
	}

	var width, height int
	var thumbnailURL string
	if isImage {
		img, decodeErr := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if decodeErr != nil {
			log.WarnContext(ctx, "图片解码失败，跳过缩略图", "fileKey", fileKey, "err", decodeErr)
		} else {
			bounds := img.Bounds()
			width, height = bounds.Dx(), bounds.Dy()
			thumbnailURL = s.uploadThumbnail(ctx, fileKey, img)
		}
	}

	meta := dto.MediaTempMetadata{
		ObjectKey: fileKey,
		MimeType:  contentType,
		FileName:  fileName,
		FileSize:  int64(len(data)),
		Width:     width,
		Height:    height,
		CreatedAt: time.Now().Unix(),
	}
	metaBytes, _ := json.Marshal(meta)
	_ = redis.HSet(ctx, consts.MediaTempKey, fileKey, string(metaBytes))

	log.InfoContext(ctx, "附件上传成功", "fileKey", fileKey, "type", contentType)
	return &dto.MediaUploadResultDTO{
		ObjectKey:    fileKey,
		URL:          minio.GetPublicURL(fileKey),
		ThumbnailURL: thumbnailURL,
		MimeType:     contentType,
		FileName:     fileName,
		FileSize:     int64(len(data)),
	}, nil
}

// uploadThumbnail 生成等比缩略图，失败只记日志不阻断上传
func (s *mediaServiceImpl) uploadThumbnail(ctx context.Context, fileKey string, img image.Image) string {
	thumb := imaging.Resize(img, thumbnailMaxWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		log.WarnContext(ctx, "缩略图编码失败", "fileKey", fileKey, "err", err)
		return ""
	}

	thumbKey := fileKey + "_thumb.jpg"
	if _, err := minio.UploadFile(ctx, thumbKey, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		log.WarnContext(ctx, "缩略图上传失败", "fileKey", fileKey, "err", err)
		return ""
	}
	return minio.GetPublicURL(thumbKey)
}
