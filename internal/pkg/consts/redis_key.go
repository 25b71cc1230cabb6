package consts

const (
	// MediaTempKey 待认领上传文件的元数据 Hash（fileKey -> 元数据 JSON）
	MediaTempKey = "media:temp:pending"
	// GifSearchKey GIF 搜索结果缓存
	GifSearchKey = "gif:search:"
	// UserInfoKey 用户信息缓存
	UserInfoKey = "user:info:"
)
