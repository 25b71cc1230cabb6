package dto

// GifSearchReq GIF 搜索请求
type GifSearchReq struct {
	Keyword string `form:"q" binding:"required"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// GifDTO 单个 GIF 结果
type GifDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`         // 原图
	PreviewURL string `json:"preview_url"` // 列表缩略
}
