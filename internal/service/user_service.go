package service

import (
	"Murmur/internal/api/dto"
	"Murmur/internal/model"
	"Murmur/internal/pkg/consts"
	"Murmur/internal/pkg/es"
	"Murmur/internal/pkg/minio"
	"Murmur/internal/pkg/redis"
	"Murmur/internal/pkg/security"
	"Murmur/internal/repository"
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
)

type UserService interface {
	Register(ctx context.Context, dto *dto.RegisterDTO) error
	Login(ctx context.Context, dto *dto.CredentialDTO) (*dto.LoginResultDTO, error)
	Logout(ctx context.Context, token string) error
	GetUserInfo(ctx context.Context, id uint64) (*dto.UserDTO, error)
	SearchUser(ctx context.Context, dto *dto.SearchUserDTO) ([]*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, id uint64, dto *dto.UpdateProfileDTO) error
	UpdatePassword(ctx context.Context, id uint64, dto *dto.ChangePasswordDTO) error
	UpdateAvatar(ctx context.Context, id uint64, objectName string) error
}

type UserServiceImpl struct {
	userRepo   repository.UserRepo
	userSearch es.UserRepo
}

func NewUserService(userRepo repository.UserRepo, userSearch es.UserRepo) UserService {
	return &UserServiceImpl{
		userRepo:   userRepo,
		userSearch: userSearch,
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, regDTO *dto.RegisterDTO) error {
	findUser, err := s.userRepo.GetUserByUsername(ctx, regDTO.Username)
	if err != nil {
		return err
	}
	if findUser != nil {
		return ErrUserUsernameExist
	}

	passwordHash, err := security.HashPassword(regDTO.Password)
	if err != nil {
		return err
	}

	nickname := regDTO.Nickname
	if nickname == "" {
		nickname = regDTO.Username
	}

	user := &model.User{
		Username:  regDTO.Username,
		Password:  &passwordHash,
		Nickname:  nickname,
		AvatarURL: consts.DefaultAvatarURL,
	}
	return s.userRepo.CreateUser(ctx, user)
}

func (s *UserServiceImpl) Login(ctx context.Context, credDTO *dto.CredentialDTO) (*dto.LoginResultDTO, error) {
	if credDTO.Username == nil || credDTO.Password == nil {
		return nil, ErrMissingLoginCredentials
	}

	user, err := s.userRepo.GetUserByUsername(ctx, *credDTO.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDelete {
		return nil, ErrUserNotFound
	}
	if user.Password == nil {
		return nil, ErrPasswordIncorrect
	}
	if err := security.CheckPasswordHash(*credDTO.Password, *user.Password); err != nil {
		return nil, ErrPasswordIncorrect
	}

	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResultDTO{
		Token: token,
		User:  s.toUserDTO(user),
	}, nil
}

// Logout 将 token 签名拉黑到过期
func (s *UserServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return err
	}
	return redis.SetWithExpiration(ctx, signature, true, security.JWTExpirationTime)
}

func (s *UserServiceImpl) GetUserInfo(ctx context.Context, id uint64) (*dto.UserDTO, error) {
	key := consts.UserInfoKey + strconv.FormatUint(id, 10)
	value, err := redis.GetValue(ctx, key)
	if err != nil {
		return nil, err
	}
	if value != "" {
		var userDTO *dto.UserDTO
		if err := json.Unmarshal([]byte(value), &userDTO); err == nil {
			return userDTO, nil
		}
	}

	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDelete {
		return nil, ErrUserNotFound
	}

	userDTO := s.toUserDTO(user)
	if jsonStr, err := json.Marshal(userDTO); err == nil {
		_ = redis.SetWithExpiration(ctx, key, string(jsonStr), time.Hour*1)
	}
	return userDTO, nil
}

// SearchUser 走 ES 做用户名/昵称模糊搜索
func (s *UserServiceImpl) SearchUser(ctx context.Context, searchDTO *dto.SearchUserDTO) ([]*dto.UserDTO, error) {
	if searchDTO.Size <= 0 {
		searchDTO.Size = 20
	}
	if searchDTO.Page <= 0 {
		searchDTO.Page = 1
	}

	hits, err := s.userSearch.SearchUsers(ctx, searchDTO.Keyword, (searchDTO.Page-1)*searchDTO.Size, searchDTO.Size)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.UserDTO, 0, len(hits))
	for _, hit := range hits {
		userDTO := &dto.UserDTO{}
		if err := copier.Copy(userDTO, hit); err != nil {
			return nil, err
		}
		userDTO.UserID = &hit.ID
		url := minio.GetPublicURL(hit.AvatarURL)
		userDTO.AvatarURL = &url
		res = append(res, userDTO)
	}
	return res, nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, id uint64, profileDTO *dto.UpdateProfileDTO) error {
	user := &model.User{ID: id}
	if profileDTO.Nickname != nil {
		user.Nickname = *profileDTO.Nickname
	}
	if profileDTO.AvatarURL != nil {
		user.AvatarURL = *profileDTO.AvatarURL
	}
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.evictUserCache(ctx, id)
	return nil
}

func (s *UserServiceImpl) UpdatePassword(ctx context.Context, id uint64, pwdDTO *dto.ChangePasswordDTO) error {
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return err
	}
	if user == nil || user.Password == nil {
		return ErrUserNotFound
	}
	if err := security.CheckPasswordHash(*pwdDTO.OldPassword, *user.Password); err != nil {
		return ErrPasswordIncorrect
	}

	passwordHash, err := security.HashPassword(*pwdDTO.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateUser(ctx, &model.User{ID: id, Password: &passwordHash})
}

// UpdateAvatar 头像已通过上传接口落入 MinIO，这里只认领并更新引用
func (s *UserServiceImpl) UpdateAvatar(ctx context.Context, id uint64, objectName string) error {
	exists, err := minio.StatFile(ctx, objectName)
	if err != nil {
		return err
	}
	if !exists {
		return ErrFileNotExist
	}

	if err := s.userRepo.UpdateUser(ctx, &model.User{ID: id, AvatarURL: objectName}); err != nil {
		return err
	}

	_ = redis.HDel(ctx, consts.MediaTempKey, objectName)
	s.evictUserCache(ctx, id)
	return nil
}

func (s *UserServiceImpl) evictUserCache(ctx context.Context, id uint64) {
	_ = redis.DeleteKey(ctx, consts.UserInfoKey+strconv.FormatUint(id, 10))
}

func (s *UserServiceImpl) toUserDTO(user *model.User) *dto.UserDTO {
	url := minio.GetPublicURL(user.AvatarURL)
	return &dto.UserDTO{
		UserID:    &user.ID,
		Username:  &user.Username,
		Nickname:  &user.Nickname,
		AvatarURL: &url,
		CreatedAt: &user.CreatedAt,
	}
}
