package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"media-forge/app/database"
	"media-forge/app/model"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newViralTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ViralVideo{}, &model.ViralTag{}, &model.VideoProject{}))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewViralHandler()
	router.GET("/api/viral/videos", h.GetViralVideos)
	router.POST("/api/viral/videos", h.CreateViralVideo)
	router.GET("/api/viral/videos/:id", h.GetViralVideo)
	router.POST("/api/viral/videos/:id/create-project", h.CreateProjectFromViral)
	return router
}

func seedViralVideo(t *testing.T, id, name string, tags []string, createdAt time.Time) {
	t.Helper()

	video := model.ViralVideo{
		ID:         id,
		Name:       name,
		YoutubeURL: "https://youtube.com/watch?v=" + id,
		CreatedAt:  createdAt,
	}
	require.NoError(t, video.SetTags(tags))
	require.NoError(t, database.DB.Create(&video).Error)
}

func doViralRequest(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, ApiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func viralListNames(t *testing.T, resp ApiResponse) (names []string, total float64) {
	t.Helper()

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	list, ok := data["list"].([]any)
	require.True(t, ok)
	for _, item := range list {
		entry, ok := item.(map[string]any)
		require.True(t, ok)
		names = append(names, entry["name"].(string))
	}
	total, _ = data["total"].(float64)
	return names, total
}

func TestGetViralVideosKeywordFilter(t *testing.T) {
	router := newViralTestRouter(t)

	now := time.Now()
	seedViralVideo(t, "v1", "街头美食探店", []string{"美食"}, now)
	seedViralVideo(t, "v2", "城市夜景航拍", []string{"风景"}, now)

	w, resp := doViralRequest(t, router, http.MethodGet, "/api/viral/videos?keyword=%E7%BE%8E%E9%A3%9F", nil)
	require.Equal(t, http.StatusOK, w.Code)

	names, total := viralListNames(t, resp)
	assert.Equal(t, []string{"街头美食探店"}, names)
	assert.Equal(t, float64(1), total)
}

func TestGetViralVideosTagFilterRequiresAllTags(t *testing.T) {
	router := newViralTestRouter(t)

	now := time.Now()
	seedViralVideo(t, "v1", "探店A", []string{"美食", "探店"}, now)
	seedViralVideo(t, "v2", "探店B", []string{"探店"}, now)

	w, resp := doViralRequest(t, router, http.MethodGet,
		"/api/viral/videos?tags=%E7%BE%8E%E9%A3%9F,%E6%8E%A2%E5%BA%97", nil)
	require.Equal(t, http.StatusOK, w.Code)

	names, total := viralListNames(t, resp)
	assert.Equal(t, []string{"探店A"}, names)
	assert.Equal(t, float64(1), total)
}

func TestGetViralVideosDateRangeAndPagination(t *testing.T) {
	router := newViralTestRouter(t)

	old := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	seedViralVideo(t, "v1", "七月视频", nil, old)
	seedViralVideo(t, "v2", "八月视频A", nil, recent)
	seedViralVideo(t, "v3", "八月视频B", nil, recent.Add(time.Hour))

	// 日期区间只命中八月的两条
	w, resp := doViralRequest(t, router, http.MethodGet,
		"/api/viral/videos?start_date=2026-08-01&end_date=2026-08-31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	names, total := viralListNames(t, resp)
	assert.Len(t, names, 2)
	assert.Equal(t, float64(2), total)
	assert.NotContains(t, names, "七月视频")

	// 分页：page_size=2 时第二页只剩一条，total 仍是全量
	_, resp = doViralRequest(t, router, http.MethodGet, "/api/viral/videos?page=2&page_size=2", nil)
	names, total = viralListNames(t, resp)
	assert.Len(t, names, 1)
	assert.Equal(t, float64(3), total)
}

func TestCreateViralVideoAndFetch(t *testing.T) {
	router := newViralTestRouter(t)

	w, resp := doViralRequest(t, router, http.MethodPost, "/api/viral/videos", gin.H{
		"name":        "爆款案例",
		"youtube_url": "https://youtube.com/watch?v=abc",
		"tags":        []string{"美食"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, resp.Code)

	created, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	w, resp = doViralRequest(t, router, http.MethodGet, "/api/viral/videos/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	fetched, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "爆款案例", fetched["name"])
	assert.Equal(t, []any{"美食"}, fetched["tags"])

	// 缺少必填字段
	w, _ = doViralRequest(t, router, http.MethodPost, "/api/viral/videos", gin.H{"name": "无地址"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProjectFromViral(t *testing.T) {
	router := newViralTestRouter(t)

	seedViralVideo(t, "v1", "参考视频", nil, time.Now())

	w, resp := doViralRequest(t, router, http.MethodPost,
		"/api/viral/videos/v1/create-project", gin.H{"instruction": "换成赛博朋克风格"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	projectID, _ := data["project_id"].(string)
	require.NotEmpty(t, projectID)

	var project model.VideoProject
	require.NoError(t, database.DB.First(&project, "id = ?", projectID).Error)
	assert.Equal(t, "参考视频", project.Name)
	assert.Equal(t, model.ProjectStatusCreated, project.Status)

	// 不存在的爆款视频
	w, _ = doViralRequest(t, router, http.MethodPost,
		"/api/viral/videos/missing/create-project", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
