package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"stylemateapi/apperr"
	"stylemateapi/dbhelper"
	"stylemateapi/models"
	"stylemateapi/recommend"
	"stylemateapi/tasks"
	"stylemateapi/test"
	"stylemateapi/weather"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedResponse struct {
	Message     string                `json:"message"`
	SavedOutfit models.SavedOutfitOut `json:"savedOutfit"`
}

func TestRecommendationsOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")
	for i := 0; i < 4; i++ {
		test.FakeItem(db, user, fmt.Sprintf("Shirt %d", i), "tops")
		test.FakeItem(db, user, fmt.Sprintf("Jeans %d", i), "bottoms")
	}

	rec := serve(e, test.NewJSONAuthRequest("GET", "/api/outfits/recommendations", test.UserID(user), nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var candidates []recommend.CandidateOutfit
	decode(t, rec, &candidates)
	require.Len(t, candidates, 4)

	seen := map[uint]bool{}
	for i, c := range candidates {
		assert.True(t, strings.HasPrefix(c.ID, "rec_"), c.ID)
		assert.Equal(t, fmt.Sprintf("Weather-Appropriate Outfit %d", i+1), c.Name)
		assert.Equal(t, "Perfect for sunny weather at 20°C", c.Description)
		assert.Equal(t, "sunny", c.Weather)
		assert.Equal(t, float64(20), c.Temperature)
		assert.GreaterOrEqual(t, c.Rating, 1)
		assert.LessOrEqual(t, c.Rating, 5)
		require.Len(t, c.Items, 2)
		assert.Equal(t, "tops", c.Items[0].CategoryName)
		assert.Equal(t, "bottoms", c.Items[1].CategoryName)
		for _, item := range c.Items {
			assert.False(t, seen[item.ID], "item %d reused", item.ID)
			seen[item.ID] = true
			require.NotNil(t, item.ImageURL)
			assert.True(t, strings.HasPrefix(*item.ImageURL, "https://cdn.example.com/wardrobe/"), *item.ImageURL)
		}
	}
}

func TestRecommendationsEmptyWardrobe(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")

	rec := serve(e, test.NewJSONAuthRequest("GET", "/api/outfits/recommendations", test.UserID(user), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message": "No items found in wardrobe"}`, rec.Body.String())
}

func TestRecommendationsEmptyWardrobeSkipsWeatherLookup(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	deps := testDeps(db)
	mock := &test.WeatherMock{Err: apperr.New(apperr.KindRateLimited, "Too many weather requests, please try again later")}
	deps.Weather = mock
	e := SetupServer(deps)
	user := test.FakeUser(db, "")

	rec := serve(e, test.NewJSONAuthRequest("GET", "/api/outfits/recommendations?city=Nairobi", test.UserID(user), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message": "No items found in wardrobe"}`, rec.Body.String())
	assert.Empty(t, mock.Cities)
}

func TestRecommendationsNoViableOutfits(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")
	test.FakeItem(db, user, "Shirt", "tops")
	test.FakeItem(db, user, "Sneakers", "shoes")

	rec := serve(e, test.NewJSONAuthRequest("GET", "/api/outfits/recommendations", test.UserID(user), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message": "Could not generate outfit recommendations with current wardrobe"}`, rec.Body.String())
}

func TestRecommendationsUsesLiveWeatherForCity(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	deps := testDeps(db)
	live := &test.WeatherMock{Report: weather.Report{Temperature: 5, Condition: "snowy"}}
	deps.Weather = live
	e := SetupServer(deps)
	user := test.FakeUser(db, "")
	test.FakeItem(db, user, "Wool Sweater", "tops")
	test.FakeItem(db, user, "T-Shirt", "tops")
	test.FakeItem(db, user, "Jacket Pants", "bottoms")
	test.FakeItem(db, user, "Shorts", "bottoms")

	rec := serve(e, test.NewJSONAuthRequest("GET", "/api/outfits/recommendations?city=Nairobi", test.UserID(user), nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Nairobi"}, live.Cities)
	var candidates []recommend.CandidateOutfit
	decode(t, rec, &candidates)
	require.Len(t, candidates, 1)
	assert.Equal(t, "snowy", candidates[0].Weather)
	assert.Equal(t, "Perfect for snowy weather at 5°C", candidates[0].Description)
	require.Len(t, candidates[0].Items, 2)
	assert.Equal(t, "Wool Sweater", candidates[0].Items[0].Name)
	assert.Equal(t, "Jacket Pants", candidates[0].Items[1].Name)
}

func TestRecommendationsCityNotFound(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	deps := testDeps(db)
	deps.Weather = &test.WeatherMock{Err: apperr.NotFound("City %q not found", "Atlantis")}
	e := SetupServer(deps)
	user := test.FakeUser(db, "")
	test.FakeItem(db, user, "Shirt", "tops")

	rec := serve(e, test.NewJSONAuthRequest("GET", "/api/outfits/recommendations?city=Atlantis", test.UserID(user), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestRecommendationsUnauthorized(t *testing.T) {
	db := dbhelper.SetupTestDB()
	e := SetupServer(testDeps(db))

	rec := serve(e, test.NewJSONRequest("GET", "/api/outfits/recommendations", nil))

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnauthorized}, rec.Code)

	rec = serve(e, test.NewJSONAuthRequestCustomAuth("GET", "/api/outfits/recommendations", "Bearer broken", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaveCandidateOutfit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")
	top := test.FakeItem(db, user, "Shirt", "tops")
	bottom := test.FakeItem(db, user, "Jeans", "bottoms")

	body := echo.Map{
		"id":          "rec_1700000000000_0",
		"name":        "Weather-Appropriate Outfit 1",
		"description": "Perfect for sunny weather at 20°C",
		"items":       []echo.Map{{"id": top.ID}, {"id": bottom.ID}},
		"weather":     "sunny",
		"occasion":    "casual",
		"rating":      4,
	}
	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), body))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp savedResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Outfit saved successfully", resp.Message)
	assert.Equal(t, "Weather-Appropriate Outfit 1", resp.SavedOutfit.Name)
	require.NotNil(t, resp.SavedOutfit.Rating)
	assert.Equal(t, 4, *resp.SavedOutfit.Rating)
	require.Len(t, resp.SavedOutfit.Items, 2)
	assert.Equal(t, "Shirt", resp.SavedOutfit.Items[0].Name)
	assert.Equal(t, "tops", resp.SavedOutfit.Items[0].CategoryName)
	require.NotNil(t, resp.SavedOutfit.Items[0].ImageURL)
	assert.Equal(t, "https://cdn.example.com/"+*top.ImageURL, *resp.SavedOutfit.Items[0].ImageURL)

	var outfit models.Outfit
	require.NoError(t, db.Where("source_candidate_id = ?", "rec_1700000000000_0").Take(&outfit).Error)
	assert.Equal(t, user.ID, outfit.UserAccountID)
	assert.Equal(t, outfit.ID, resp.SavedOutfit.OutfitID)

	// saving the same candidate again is rejected and writes nothing
	rec = serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message": "Outfit is already saved"}`, rec.Body.String())
	var outfits, saved int64
	db.Model(&models.Outfit{}).Count(&outfits)
	db.Model(&models.SavedOutfit{}).Count(&saved)
	assert.Equal(t, int64(1), outfits)
	assert.Equal(t, int64(1), saved)
}

func TestSavePersistedOutfit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")
	top := test.FakeItem(db, user, "Shirt", "tops")

	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits", test.UserID(user), echo.Map{
		"name":     "Office",
		"item_ids": []uint{top.ID},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.OutfitCreatedOut
	decode(t, rec, &created)

	rec = serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{
		"id":   created.Outfit.ID,
		"name": "My office look",
	}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp savedResponse
	decode(t, rec, &resp)
	assert.Equal(t, created.Outfit.ID, resp.SavedOutfit.OutfitID)
	assert.Equal(t, "My office look", resp.SavedOutfit.Name)
	require.Len(t, resp.SavedOutfit.Items, 1)
	assert.Equal(t, top.ID, resp.SavedOutfit.Items[0].ID)
}

func TestSaveOutfitValidation(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")

	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{"name": "No id"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{"id": "rec_1_0"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{
		"id": "rec_1_0", "name": "x", "rating": 9,
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// persisted outfit that does not exist
	rec = serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{"id": 999, "name": "x"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{
		"id": "abc", "kind": "persisted", "name": "x",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveCandidateWithForeignItems(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "owner")
	other := test.FakeUser(db, "other")
	mine := test.FakeItem(db, user, "Shirt", "tops")
	theirs := test.FakeItem(db, other, "Jeans", "bottoms")

	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{
		"id":    "rec_1_0",
		"name":  "Mixed",
		"items": []echo.Map{{"id": mine.ID}, {"id": theirs.ID}},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message": "Outfit items must belong to your wardrobe"}`, rec.Body.String())
	var outfits int64
	db.Model(&models.Outfit{}).Count(&outfits)
	assert.Equal(t, int64(0), outfits)
}

func TestRemoveSavedOutfit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")
	top := test.FakeItem(db, user, "Shirt", "tops")

	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{
		"id": "rec_5_1", "name": "Look", "items": []echo.Map{{"id": top.ID}},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp savedResponse
	decode(t, rec, &resp)

	rec = serve(e, test.NewJSONAuthRequest("DELETE", "/api/outfits/saved", test.UserID(user), echo.Map{"id": resp.SavedOutfit.OutfitID}))

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message": "Outfit removed from saved"}`, rec.Body.String())
	var saved int64
	db.Model(&models.SavedOutfit{}).Count(&saved)
	assert.Equal(t, int64(0), saved)

	rec = serve(e, test.NewJSONAuthRequest("DELETE", "/api/outfits/saved", test.UserID(user), echo.Map{"id": resp.SavedOutfit.OutfitID}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message": "Saved outfit not found"}`, rec.Body.String())
}

func TestRemoveSavedOutfitByCandidateQuery(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "")
	top := test.FakeItem(db, user, "Shirt", "tops")

	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{
		"id": "rec_9_2", "name": "Look", "items": []echo.Map{{"id": top.ID}},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(e, test.NewJSONAuthRequest("DELETE", "/api/outfits/saved?id=rec_9_2", test.UserID(user), nil))

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(e, test.NewJSONAuthRequest("DELETE", "/api/outfits/saved", test.UserID(user), nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSavedOutfits(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "owner")
	other := test.FakeUser(db, "other")
	top := test.FakeItem(db, user, "Shirt", "tops")
	theirTop := test.FakeItem(db, other, "Shirt", "tops")

	for i, name := range []string{"First", "Second"} {
		rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(user), echo.Map{
			"id": fmt.Sprintf("rec_1_%d", i), "name": name, "items": []echo.Map{{"id": top.ID}},
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits/saved", test.UserID(other), echo.Map{
		"id": "rec_1_0", "name": "Theirs", "items": []echo.Map{{"id": theirTop.ID}},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(e, test.NewJSONAuthRequest("GET", "/api/outfits/saved", test.UserID(user), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.SavedOutfitOut
	decode(t, rec, &list)
	require.Len(t, list, 2)
	names := []string{list[0].Name, list[1].Name}
	assert.ElementsMatch(t, []string{"First", "Second"}, names)
}

func TestOutfitCrud(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	deps := testDeps(db)
	e := SetupServer(deps)
	user := test.FakeUser(db, "")
	top := test.FakeItem(db, user, "Shirt", "tops")
	bottom := test.FakeItem(db, user, "Jeans", "bottoms")

	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits", test.UserID(user), echo.Map{
		"name":      "Weekend",
		"occasion":  "casual",
		"weather":   "sunny",
		"item_ids":  []uint{top.ID, bottom.ID},
		"file_name": "look.png",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.OutfitCreatedOut
	decode(t, rec, &created)
	assert.Contains(t, created.FileUploadUrl, "https://fakebucketurl.com/outfits/")
	require.Len(t, created.Outfit.Items, 2)

	rec = serve(e, test.NewJSONAuthRequest("PUT", fmt.Sprintf("/api/outfits/%d/favorite", created.Outfit.ID), test.UserID(user), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var toggled models.OutfitOut
	decode(t, rec, &toggled)
	assert.True(t, toggled.IsFavorite)

	rec = serve(e, test.NewJSONAuthRequest("PUT", fmt.Sprintf("/api/outfits/%d/save", created.Outfit.ID), test.UserID(user), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &toggled)
	assert.True(t, toggled.SavedForLater)

	rec = serve(e, test.NewJSONAuthRequest("PUT", fmt.Sprintf("/api/outfits/%d", created.Outfit.ID), test.UserID(user), echo.Map{
		"name":      "Weekend v2",
		"item_ids":  []uint{bottom.ID},
		"file_name": "look2.jpg",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.OutfitCreatedOut
	decode(t, rec, &updated)
	assert.Equal(t, "Weekend v2", updated.Outfit.Name)
	require.Len(t, updated.Outfit.Items, 1)
	assert.Equal(t, bottom.ID, updated.Outfit.Items[0].ID)
	assert.Len(t, deps.Tasks.(*test.EnqueuerMock).TasksOfType(tasks.TypeDeleteObject), 1)

	rec = serve(e, test.NewJSONAuthRequest("GET", "/api/outfits/stats", test.UserID(user), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.OutfitStatsOut
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalOutfits)
	assert.Equal(t, []models.CountEntry{{Name: "Casual", Count: 1}}, stats.Occasions)
	assert.Equal(t, []models.CountEntry{{Name: "Bottoms", Count: 1}}, stats.Favorites)

	rec = serve(e, test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/api/outfits/%d", created.Outfit.ID), test.UserID(user), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, deps.Tasks.(*test.EnqueuerMock).TasksOfType(tasks.TypeDeleteObject), 2)

	rec = serve(e, test.NewJSONAuthRequest("GET", "/api/outfits", test.UserID(user), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestOutfitOfAnotherUserIsNotFound(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(testDeps(db))
	user := test.FakeUser(db, "owner")
	other := test.FakeUser(db, "other")
	top := test.FakeItem(db, user, "Shirt", "tops")

	rec := serve(e, test.NewJSONAuthRequest("POST", "/api/outfits", test.UserID(user), echo.Map{
		"name": "Mine", "item_ids": []uint{top.ID},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.OutfitCreatedOut
	decode(t, rec, &created)

	rec = serve(e, test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/api/outfits/%d", created.Outfit.ID), test.UserID(other), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
