package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"stylemateapi/dbhelper"
	"stylemateapi/models"
	"stylemateapi/tasks"
	"stylemateapi/test"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWardrobeItemOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")

	reqBody := models.CreateWardrobeItemIn{
		Name:        "Denim Jacket",
		Category:    "Outerwear",
		Description: test.StrPointer("Light blue"),
		Color:       test.StrPointer("blue"),
		Seasons:     []string{"spring", "fall"},
		FileName:    test.StrPointer("IMG_0001.JPG"),
	}
	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/wardrobe", test.UserID(user), reqBody))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var response models.WardrobeItemCreatedOut
	decode(t, rec, &response)
	assert.Equal(t, "Denim Jacket", response.Item.Name)
	assert.Equal(t, "outerwear", response.Item.CategoryName)
	assert.Equal(t, []string{"spring", "fall"}, response.Item.Seasons)
	prefix := fmt.Sprintf("https://fakebucketurl.com/wardrobe/%d/", user.ID)
	assert.True(t, strings.HasPrefix(response.FileUploadUrl, prefix), response.FileUploadUrl)
	assert.True(t, strings.HasSuffix(response.FileUploadUrl, ".jpg"), response.FileUploadUrl)

	var item models.WardrobeItem
	require.NoError(t, db.Take(&item, response.Item.ID).Error)
	require.NotNil(t, item.ImageURL)
	assert.Equal(t, response.FileUploadUrl, "https://fakebucketurl.com/"+*item.ImageURL)
}

func TestCreateWardrobeItemInvalidInput(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")

	cases := []struct {
		name string
		body interface{}
		want string
	}{
		{"missing file", echo.Map{"name": "Shirt", "category": "tops"}, "FileName"},
		{"unknown category", echo.Map{"name": "Shirt", "category": "hats", "file_name": "a.jpg"}, "Invalid category"},
		{"bad extension", echo.Map{"name": "Shirt", "category": "tops", "file_name": "a.exe"}, "Unsupported file type"},
		{"bad season", echo.Map{"name": "Shirt", "category": "tops", "file_name": "a.jpg", "seasons": []string{"monsoon"}}, "Seasons"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(e, test.NewJSONAuthRequest("POST", "/api/wardrobe", test.UserID(user), tc.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Contains(t, response["message"], tc.want)
		})
	}
	var count int64
	db.Model(&models.WardrobeItem{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestListWardrobeItems(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "owner")
	other := test.FakeUser(db, "other")
	first := test.FakeItem(db, user, "Shirt", "tops")
	second := test.FakeItem(db, user, "Jeans", "bottoms")
	test.FakeItem(db, other, "Coat", "outerwear")

	rec := serve(e, test.NewJSONAuthRequest("GET", "/api/wardrobe", test.UserID(user), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.WardrobeItemOut
	decode(t, rec, &items)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
	require.NotNil(t, items[1].ImageURL)
	assert.Equal(t, "https://cdn.example.com/"+*first.ImageURL, *items[1].ImageURL)
}

func TestListWardrobeItemsEmpty(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")

	rec := serve(e, test.NewJSONAuthRequest("GET", "/api/wardrobe", test.UserID(user), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdateWardrobeItem(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	deps := testDeps(db)
	e := SetupServer(deps)
	user := test.FakeUser(db, "")
	item := test.FakeItem(db, user, "Shirt", "tops")
	oldKey := *item.ImageURL

	rec := serve(e, test.NewJSONAuthRequest("PUT", fmt.Sprintf("/api/wardrobe/%d", item.ID), test.UserID(user), echo.Map{
		"name":      "Linen Shirt",
		"category":  "dresses",
		"color":     "white",
		"file_name": "new.png",
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.WardrobeItemCreatedOut
	decode(t, rec, &response)
	assert.Equal(t, "Linen Shirt", response.Item.Name)
	assert.Equal(t, "dresses", response.Item.CategoryName)
	assert.NotEmpty(t, response.FileUploadUrl)

	var stored models.WardrobeItem
	require.NoError(t, db.Preload("Category").Take(&stored, item.ID).Error)
	assert.Equal(t, "dresses", stored.Category.Name)
	assert.Equal(t, "white", *stored.Color)
	assert.NotEqual(t, oldKey, *stored.ImageURL)

	deletes := deps.Tasks.(*test.EnqueuerMock).TasksOfType(tasks.TypeDeleteObject)
	require.Len(t, deletes, 1)
	var payload tasks.DeleteObjectPayload
	require.NoError(t, json.Unmarshal(deletes[0].Payload(), &payload))
	assert.Equal(t, oldKey, payload.Key)
	assert.Equal(t, "test-bucket", payload.Bucket)
}

func TestUpdateWardrobeItemOwnership(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "owner")
	other := test.FakeUser(db, "other")
	item := test.FakeItem(db, user, "Shirt", "tops")

	rec := serve(e, test.NewJSONAuthRequest("PUT", fmt.Sprintf("/api/wardrobe/%d", item.ID), test.UserID(other), echo.Map{"name": "Mine now"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest("PUT", "/api/wardrobe/9999", test.UserID(user), echo.Map{"name": "Ghost"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/api/wardrobe/%d", item.ID), test.UserID(other), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var stored models.WardrobeItem
	require.NoError(t, db.Take(&stored, item.ID).Error)
	assert.Equal(t, "Shirt", stored.Name)
}

func TestDeleteWardrobeItemRemovesOutfitLinks(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	deps := testDeps(db)
	e := SetupServer(deps)
	user := test.FakeUser(db, "")
	top := test.FakeItem(db, user, "Shirt", "tops")
	bottom := test.FakeItem(db, user, "Jeans", "bottoms")

	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits", test.UserID(user), echo.Map{
		"name": "Weekend", "item_ids": []uint{top.ID, bottom.ID},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(e, test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/api/wardrobe/%d", top.ID), test.UserID(user), nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message": "Item deleted successfully"}`, rec.Body.String())
	var links int64
	db.Model(&models.OutfitItem{}).Where("wardrobe_item_id = ?", top.ID).Count(&links)
	assert.Equal(t, int64(0), links)
	var remaining int64
	db.Model(&models.OutfitItem{}).Count(&remaining)
	assert.Equal(t, int64(1), remaining)
	assert.Len(t, deps.Tasks.(*test.EnqueuerMock).TasksOfType(tasks.TypeDeleteObject), 1)
}

func TestWardrobeStats(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")
	test.FakeItem(db, user, "Shirt", "tops")
	test.FakeItem(db, user, "Tee", "tops")
	jeans := test.FakeItem(db, user, "Jeans", "bottoms")
	db.Model(jeans).Update("color", "Blue")

	rec := serve(e, test.NewJSONAuthRequest("GET", "/api/wardrobe/stats", test.UserID(user), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.WardrobeStatsOut
	decode(t, rec, &stats)
	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, []models.CountEntry{{Name: "Tops", Count: 2}, {Name: "Bottoms", Count: 1}}, stats.Categories)
	assert.Equal(t, []models.CountEntry{{Name: "Other", Count: 2}, {Name: "Blue", Count: 1}}, stats.Colors)
	assert.Equal(t, []models.CountEntry{{Name: "Summer", Count: 3}}, stats.Seasons)
}
