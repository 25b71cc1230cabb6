package consts

const (
	MimePrefixImage = "image"
	MimePrefixAudio = "audio"
	MimePrefixVideo = "video"
)

// 消息类型，与客户端约定保持字符串形式
const (
	MsgTypeText  = "text"
	MsgTypeImage = "image"
	MsgTypeVideo = "video"
	MsgTypeFile  = "file"
	MsgTypeVoice = "voice"
	MsgTypeGif   = "gif"
)

const (
	DefaultAvatarURL   = "default_avatar.png"
	DeletedPlaceholder = "该消息已被删除"
)
