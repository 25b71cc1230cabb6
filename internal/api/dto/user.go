package dto

import "time"

// UserDTO 用户信息
type UserDTO struct {
	UserID    *uint64    `json:"user_id,omitempty"`
	Username  *string    `json:"username,omitempty"`
	Nickname  *string    `json:"nickname,omitempty"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// RegisterDTO 注册
type RegisterDTO struct {
	Username string `json:"username" binding:"required" validate:"min=3,max=20"`
	Password string `json:"password" binding:"required" validate:"min=6,max=20"`
	Nickname string `json:"nickname" validate:"omitempty,min=1,max=15"`
}

// CredentialDTO 登录凭证
type CredentialDTO struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

// LoginResultDTO 登录结果：令牌与用户信息一并下发
type LoginResultDTO struct {
	Token string   `json:"token"`
	User  *UserDTO `json:"user"`
}

// ChangePasswordDTO 修改密码
type ChangePasswordDTO struct {
	OldPassword *string `json:"old_password" binding:"required" validate:"min=6,max=20"`
	NewPassword *string `json:"new_password" binding:"required" validate:"min=6,max=20"`
}

// UpdateProfileDTO 修改资料
type UpdateProfileDTO struct {
	Nickname  *string `json:"nickname,omitempty" validate:"omitempty,min=1,max=15"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// SearchUserDTO 搜索用户
type SearchUserDTO struct {
	Keyword string `form:"keyword" binding:"required"`
	Page    int    `form:"page"`
	Size    int    `form:"size"`
}
