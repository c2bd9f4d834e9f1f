package version

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sort"
	"time"

	goversion "github.com/hashicorp/go-version"

	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
)

// Channel 发布通道，安装时解析成具体版本号
type Channel string

const (
	ChannelStable  Channel = "stable"
	ChannelBeta    Channel = "beta"
	ChannelNightly Channel = "nightly"
)

// ParseChannel 识别通道名，不是通道的输入返回false
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelStable, ChannelBeta, ChannelNightly:
		return Channel(s), true
	default:
		return "", false
	}
}

/**
 * Release 发布源上的一条发布记录
 * @property {string} tag_name - 版本标签
 * @property {bool} prerelease - 是否预发布
 * @property {string} published_at - 发布时间(RFC3339)
 */
type Release struct {
	TagName     string    `json:"tag_name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

/**
 * Downloader 从发布源获取内核制品
 * @description
 * - GET <base>/releases.json 列出发布记录，用于通道解析
 * - GET <base>/download/<tag>/<artifact> 拉取gzip压缩的二进制
 */
type Downloader struct {
	baseURL string
	client  *http.Client
}

func NewDownloader(baseURL string, timeout time.Duration) *Downloader {
	return &Downloader{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// ArtifactName 当前平台对应的制品名
func ArtifactName(tag string) string {
	return fmt.Sprintf("mihomo-%s-%s-%s.gz", runtime.GOOS, runtime.GOARCH, tag)
}

/**
 * Releases 获取发布记录列表
 * @param {context.Context} ctx - 取消/超时控制
 * @returns {[]Release} 发布记录
 * @returns {error} Network error if the feed is unreachable or malformed
 */
func (d *Downloader) Releases(ctx context.Context) ([]Release, error) {
	url := d.baseURL + "/releases.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.WrapKind(err, errs.KindNetwork, "build release feed request")
	}
	req.Header.Set("User-Agent", "mihomoctl")

	rsp, err := d.client.Do(req)
	if err != nil {
		return nil, errs.WrapKind(err, errs.KindNetwork, "fetch release feed")
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return nil, errs.Network("release feed returned HTTP %d", rsp.StatusCode)
	}

	var releases []Release
	if err := json.NewDecoder(rsp.Body).Decode(&releases); err != nil {
		return nil, errs.WrapKind(err, errs.KindNetwork, "decode release feed")
	}
	return releases, nil
}

/**
 * ResolveChannel 把通道解析成具体版本号
 * @param {context.Context} ctx - 取消/超时控制
 * @param {Channel} channel - 发布通道
 * @returns {string} 具体版本标签
 * @returns {error} NotFound if the feed has no matching release
 * @description
 * - stable: 非预发布中语义版本最高的
 * - beta: 含预发布在内语义版本最高的
 * - nightly: 预发布中发布时间最新的
 */
func (d *Downloader) ResolveChannel(ctx context.Context, channel Channel) (string, error) {
	releases, err := d.Releases(ctx)
	if err != nil {
		return "", err
	}

	switch channel {
	case ChannelStable:
		return highestSemver(releases, false)
	case ChannelBeta:
		return highestSemver(releases, true)
	case ChannelNightly:
		return newestPrerelease(releases)
	default:
		return "", errs.Validation("unknown channel '%s'", channel)
	}
}

func highestSemver(releases []Release, includePre bool) (string, error) {
	type ranked struct {
		tag string
		ver *goversion.Version
	}
	var candidates []ranked
	for _, r := range releases {
		if r.Prerelease && !includePre {
			continue
		}
		v, err := goversion.NewVersion(r.TagName)
		if err != nil {
			// 非语义化标签(如Prerelease-Alpha)不参与排序
			continue
		}
		candidates = append(candidates, ranked{tag: r.TagName, ver: v})
	}
	if len(candidates) == 0 {
		return "", errs.NotFound("release feed has no matching version")
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ver.LessThan(candidates[j].ver)
	})
	return candidates[len(candidates)-1].tag, nil
}

func newestPrerelease(releases []Release) (string, error) {
	var best *Release
	for i := range releases {
		r := &releases[i]
		if !r.Prerelease {
			continue
		}
		if best == nil || r.PublishedAt.After(best.PublishedAt) {
			best = r
		}
	}
	if best == nil {
		return "", errs.NotFound("release feed has no prerelease version")
	}
	return best.TagName, nil
}

/**
 * Fetch 下载一个版本的内核二进制到指定路径
 * @param {context.Context} ctx - 取消/超时控制
 * @param {string} tag - 版本标签
 * @param {string} dest - 目标文件路径(暂存目录内)
 * @returns {error} Network error on fetch failure, Validation error if the artifact is bad
 * @description
 * - 制品为gzip压缩的单文件，下载后解压写入并置0755
 * - 空制品或解压失败按Validation处理，不污染版本库
 */
func (d *Downloader) Fetch(ctx context.Context, tag, dest string) error {
	url := fmt.Sprintf("%s/download/%s/%s", d.baseURL, tag, ArtifactName(tag))
	logger.Infof("Downloading %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.WrapKind(err, errs.KindNetwork, "build download request")
	}
	req.Header.Set("User-Agent", "mihomoctl")

	rsp, err := d.client.Do(req)
	if err != nil {
		return errs.WrapKind(err, errs.KindNetwork, "download version '%s'", tag)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode == http.StatusNotFound {
		return errs.NotFound("version '%s' has no artifact for this platform", tag)
	}
	if rsp.StatusCode != http.StatusOK {
		return errs.Network("download of '%s' returned HTTP %d", tag, rsp.StatusCode)
	}

	gz, err := gzip.NewReader(rsp.Body)
	if err != nil {
		return errs.WrapKind(err, errs.KindValidation, "artifact of '%s' is not valid gzip", tag)
	}
	defer gz.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return errs.WrapKind(err, errs.KindIO, "create binary file")
	}
	written, err := io.Copy(out, gz)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return errs.WrapKind(err, errs.KindValidation, "unpack artifact of '%s'", tag)
	}
	if written == 0 {
		os.Remove(dest)
		return errs.Validation("artifact of '%s' is empty", tag)
	}
	// 解压路径上显式设一次，防止umask吃掉执行位
	if err := os.Chmod(dest, 0o755); err != nil {
		return errs.WrapKind(err, errs.KindIO, "mark binary executable")
	}

	logger.Infof("Downloaded version '%s' (%d bytes)", tag, written)
	return nil
}
