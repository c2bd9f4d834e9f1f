package profile

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"mihomoctl/internal/env"
	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
)

/**
 * Profile 一个命名的内核配置
 * @property {string} name - 配置名
 * @property {string} path - 配置文件路径
 * @property {time.Time} createdAt - 创建时间
 */
type Profile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
}

/**
 * Store 磁盘上的配置集合
 * @description
 * - configs/<name>.yaml为一个配置，configs/current指针记录当前配置名
 * - 指针写入与版本库同一套write-temp-then-rename纪律
 */
type Store struct {
	home env.Home
}

func NewStore(home env.Home) *Store {
	return &Store{home: home}
}

// Exists 判断配置是否存在
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.home.ProfilePath(name))
	return err == nil && !info.IsDir()
}

// Get 读取一个配置的元信息
func (s *Store) Get(name string) (Profile, error) {
	info, err := os.Stat(s.home.ProfilePath(name))
	if err != nil || info.IsDir() {
		return Profile{}, errs.NotFound("profile '%s' does not exist", name)
	}
	return Profile{
		Name:      name,
		Path:      s.home.ProfilePath(name),
		CreatedAt: info.ModTime(),
	}, nil
}

/**
 * List 返回配置快照，按创建时间排序
 * @returns {[]Profile} Profiles, oldest first
 */
func (s *Store) List() ([]Profile, error) {
	entries, err := os.ReadDir(s.home.ConfigsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.WrapKind(err, errs.KindIO, "read configs directory")
	}

	var profiles []Profile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		p, err := s.Get(strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			continue
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
	return profiles, nil
}

// Read 读取配置文件内容
func (s *Store) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.home.ProfilePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound("profile '%s' does not exist", name)
		}
		return nil, errs.WrapKind(err, errs.KindIO, "read profile '%s'", name)
	}
	return data, nil
}

// Save 原子地写入配置文件
func (s *Store) Save(name string, content []byte) error {
	if err := os.MkdirAll(s.home.ConfigsDir(), 0o755); err != nil {
		return errs.WrapKind(err, errs.KindIO, "create configs directory")
	}
	if err := renameio.WriteFile(s.home.ProfilePath(name), content, 0o644); err != nil {
		return errs.WrapKind(err, errs.KindIO, "write profile '%s'", name)
	}
	return nil
}

/**
 * Delete 删除一个配置
 * @param {string} name - 配置名
 * @returns {error} NotFound if absent
 * @description
 * - 当前指针指向该配置时先清指针，保证指针永不悬空
 */
func (s *Store) Delete(name string) error {
	if !s.Exists(name) {
		return errs.NotFound("profile '%s' does not exist", name)
	}
	current, err := s.Current()
	if err != nil {
		return err
	}
	if current == name {
		if err := s.ClearCurrent(); err != nil {
			return err
		}
		logger.Infof("Cleared current pointer previously referencing '%s'", name)
	}
	if err := os.Remove(s.home.ProfilePath(name)); err != nil {
		return errs.WrapKind(err, errs.KindIO, "delete profile '%s'", name)
	}
	return nil
}

/**
 * Current 读取当前配置指针
 * @returns {string} 当前配置名，未设置时为空串
 * @description
 * - 悬空指针(配置已被删除)在读取时视为未设置
 */
func (s *Store) Current() (string, error) {
	data, err := os.ReadFile(s.home.CurrentPointer())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errs.WrapKind(err, errs.KindIO, "read current pointer")
	}
	name := strings.TrimSpace(string(data))
	if name == "" || !s.Exists(name) {
		return "", nil
	}
	return name, nil
}

// SetCurrent 原子地切换当前配置指针
func (s *Store) SetCurrent(name string) error {
	if !s.Exists(name) {
		return errs.NotFound("profile '%s' does not exist", name)
	}
	if err := renameio.WriteFile(s.home.CurrentPointer(), []byte(name+"\n"), 0o644); err != nil {
		return errs.WrapKind(err, errs.KindIO, "write current pointer")
	}
	return nil
}

// ClearCurrent 清除当前配置指针
func (s *Store) ClearCurrent() error {
	if err := os.Remove(s.home.CurrentPointer()); err != nil && !os.IsNotExist(err) {
		return errs.WrapKind(err, errs.KindIO, "clear current pointer")
	}
	return nil
}
