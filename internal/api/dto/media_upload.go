package dto

// MediaTempMetadata 已上传未发送附件的暂存元数据，存 Redis Hash
type MediaTempMetadata struct {
	ObjectKey string `json:"object_key"`
	MimeType  string `json:"mime_type"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt int64  `json:"created_at"`
}

// MediaUploadResultDTO 上传接口响应
type MediaUploadResultDTO struct {
	ObjectKey    string `json:"object_key"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	MimeType     string `json:"mime_type"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
}
