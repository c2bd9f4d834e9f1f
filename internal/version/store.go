package version

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"mihomoctl/internal/env"
	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
)

// 暂存目录前缀，List扫描时跳过
const stagePrefix = ".tmp-"

// 版本目录内的安装记录文件
const metaFileName = "install.json"

/**
 * Version 一个已安装的内核版本
 * @property {string} tag - 版本号(语义化标签，如v1.18.0)
 * @property {string} dir - 安装目录
 * @property {string} binaryPath - 内核二进制路径
 * @property {time.Time} installedAt - 安装时间
 */
type Version struct {
	Tag         string    `json:"tag"`
	Dir         string    `json:"dir"`
	BinaryPath  string    `json:"binaryPath"`
	InstalledAt time.Time `json:"installedAt"`
}

type installMeta struct {
	Tag         string    `json:"tag"`
	InstalledAt time.Time `json:"installedAt"`
}

/**
 * Store 磁盘上的版本集合
 * @description
 * - versions/<tag>/目录为一个版本，目录整体通过rename原子发布
 * - versions/default指针文件记录默认版本，写入走write-temp-then-rename
 * - 磁盘是唯一事实，每次操作都重新读取，不在内存里长期缓存
 */
type Store struct {
	home env.Home
}

func NewStore(home env.Home) *Store {
	return &Store{home: home}
}

// Installed 判断版本是否已完整发布(目录和二进制都存在)
func (s *Store) Installed(tag string) bool {
	info, err := os.Stat(s.home.VersionBinary(tag))
	return err == nil && info.Size() > 0
}

/**
 * Get 读取一个已安装版本
 * @param {string} tag - 版本号
 * @returns {Version} 版本信息
 * @returns {error} NotFound if the version is not fully published
 */
func (s *Store) Get(tag string) (Version, error) {
	if !s.Installed(tag) {
		return Version{}, errs.NotFound("version '%s' is not installed", tag)
	}
	v := Version{
		Tag:        tag,
		Dir:        s.home.VersionDir(tag),
		BinaryPath: s.home.VersionBinary(tag),
	}
	v.InstalledAt = s.readInstalledAt(tag)
	return v, nil
}

func (s *Store) readInstalledAt(tag string) time.Time {
	data, err := os.ReadFile(filepath.Join(s.home.VersionDir(tag), metaFileName))
	if err == nil {
		var meta installMeta
		if json.Unmarshal(data, &meta) == nil && !meta.InstalledAt.IsZero() {
			return meta.InstalledAt
		}
	}
	// 老目录或记录损坏时退回二进制的修改时间
	if info, statErr := os.Stat(s.home.VersionBinary(tag)); statErr == nil {
		return info.ModTime()
	}
	return time.Time{}
}

/**
 * List 返回已安装版本的快照，按安装时间排序
 * @returns {[]Version} Installed versions, oldest first
 * @returns {error} IO error if the versions directory cannot be read
 * @description
 * - 跳过指针文件、暂存目录和没有二进制的残缺目录
 * - 返回的是快照，不是实时视图
 */
func (s *Store) List() ([]Version, error) {
	entries, err := os.ReadDir(s.home.VersionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.WrapKind(err, errs.KindIO, "read versions directory")
	}

	var versions []Version
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), stagePrefix) {
			continue
		}
		v, err := s.Get(entry.Name())
		if err != nil {
			// 残缺目录(发布未完成即崩溃)不对外可见
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].InstalledAt.Before(versions[j].InstalledAt)
	})
	return versions, nil
}

/**
 * Stage 创建同文件系统内的暂存目录并写入安装记录
 * @param {string} tag - 版本号
 * @returns {string} 暂存目录路径
 * @returns {error} IO error on failure
 * @description
 * - 暂存目录位于versions/下但带.tmp-前缀，不会被List看到
 * - 与最终目录同文件系统，保证Publish的rename是原子的
 */
func (s *Store) Stage(tag string) (string, error) {
	if err := os.MkdirAll(s.home.VersionsDir(), 0o755); err != nil {
		return "", errs.WrapKind(err, errs.KindIO, "create versions directory")
	}
	staged, err := os.MkdirTemp(s.home.VersionsDir(), stagePrefix+tag+"-")
	if err != nil {
		return "", errs.WrapKind(err, errs.KindIO, "create staging directory")
	}
	meta := installMeta{Tag: tag, InstalledAt: time.Now()}
	data, _ := json.MarshalIndent(meta, "", "  ")
	if err := os.WriteFile(filepath.Join(staged, metaFileName), data, 0o644); err != nil {
		os.RemoveAll(staged)
		return "", errs.WrapKind(err, errs.KindIO, "write install record")
	}
	return staged, nil
}

/**
 * Publish 将暂存目录原子地重命名为正式版本目录
 * @param {string} tag - 版本号
 * @param {string} staged - Stage返回的暂存目录
 * @returns {error} IO error on failure
 * @description
 * - 两个并发安装竞争时，先rename的胜出，后者的暂存目录直接丢弃
 */
func (s *Store) Publish(tag, staged string) error {
	dest := s.home.VersionDir(tag)
	if err := os.Rename(staged, dest); err != nil {
		if s.Installed(tag) {
			// 并发安装已发布同一版本，丢弃本次下载
			logger.Infof("Version '%s' was published concurrently, discarding staged copy", tag)
			os.RemoveAll(staged)
			return nil
		}
		os.RemoveAll(staged)
		return errs.WrapKind(err, errs.KindIO, "publish version '%s'", tag)
	}
	return nil
}

// Discard 清理未发布的暂存目录
func (s *Store) Discard(staged string) {
	if staged != "" {
		os.RemoveAll(staged)
	}
}

/**
 * Default 读取默认版本指针
 * @returns {string} 默认版本号，未设置时为空串
 * @returns {error} IO error if the pointer file cannot be read
 * @description
 * - 指针指向的版本必须仍然存在，悬空指针在读取时视为未设置
 */
func (s *Store) Default() (string, error) {
	data, err := os.ReadFile(s.home.DefaultPointer())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errs.WrapKind(err, errs.KindIO, "read default pointer")
	}
	tag := strings.TrimSpace(string(data))
	if tag == "" || !s.Installed(tag) {
		return "", nil
	}
	return tag, nil
}

/**
 * SetDefault 原子地切换默认版本指针
 * @param {string} tag - 版本号
 * @returns {error} NotFound if the version is not installed
 */
func (s *Store) SetDefault(tag string) error {
	if !s.Installed(tag) {
		return errs.NotFound("version '%s' is not installed", tag)
	}
	if err := renameio.WriteFile(s.home.DefaultPointer(), []byte(tag+"\n"), 0o644); err != nil {
		return errs.WrapKind(err, errs.KindIO, "write default pointer")
	}
	return nil
}

// ClearDefault 清除默认版本指针
func (s *Store) ClearDefault() error {
	if err := os.Remove(s.home.DefaultPointer()); err != nil && !os.IsNotExist(err) {
		return errs.WrapKind(err, errs.KindIO, "clear default pointer")
	}
	return nil
}

/**
 * Remove 删除一个已安装版本
 * @param {string} tag - 版本号
 * @returns {error} NotFound if absent, IO error on removal failure
 * @description
 * - 若默认指针指向该版本，先清指针再删目录，保证指针永不悬空
 */
func (s *Store) Remove(tag string) error {
	if !s.Installed(tag) {
		return errs.NotFound("version '%s' is not installed", tag)
	}
	def, err := s.Default()
	if err != nil {
		return err
	}
	if def == tag {
		if err := s.ClearDefault(); err != nil {
			return err
		}
		logger.Infof("Cleared default pointer previously referencing '%s'", tag)
	}
	if err := os.RemoveAll(s.home.VersionDir(tag)); err != nil {
		return errs.WrapKind(err, errs.KindIO, "remove version '%s'", tag)
	}
	return nil
}

func (s *Store) String() string {
	return fmt.Sprintf("version store at %s", s.home.VersionsDir())
}
