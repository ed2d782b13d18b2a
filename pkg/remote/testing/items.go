package testing

import (
	"fmt"
	"testing"

	"github.com/marmos91/dittocloud/pkg/checksum"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunItemTests covers GetItem and folder creation.
func (suite *ServiceTestSuite) RunItemTests(t *testing.T) {
	t.Run("GetItem_NotFound", suite.testGetItemNotFound)
	t.Run("GetItem_Device", suite.testGetItemDevice)
	t.Run("CreateItem_Folder", suite.testCreateFolder)
	t.Run("CreateItem_FolderIdempotent", suite.testCreateFolderIdempotent)
	t.Run("CreateItem_UnderRootRejected", suite.testCreateUnderRoot)
	t.Run("CreateItem_NestedPartialPath", suite.testNestedPartialPath)
	t.Run("GetUploadAuthorization", suite.testUploadAuthorization)
}

// RunListingTests covers GetChildren paging and ordering.
func (suite *ServiceTestSuite) RunListingTests(t *testing.T) {
	t.Run("Root_ListsDevices", suite.testRootListsDevices)
	t.Run("Device_HasRecycleBin", suite.testDeviceHasRecycleBin)
	t.Run("Pagination_Complete", suite.testPaginationComplete)
	t.Run("Listing_UnknownParent", suite.testListingUnknownParent)
}

// RunMutationTests covers rename, move and soft delete.
func (suite *ServiceTestSuite) RunMutationTests(t *testing.T) {
	t.Run("RenameItem", suite.testRename)
	t.Run("RenameItem_Conflict", suite.testRenameConflict)
	t.Run("MoveItem", suite.testMove)
	t.Run("MoveItem_BelowItself", suite.testMoveBelowItself)
	t.Run("DeleteItem_MovesToRecycleBin", suite.testDelete)
	t.Run("DeleteItem_NotFound", suite.testDeleteNotFound)
}

// ============================================================================
// Items
// ============================================================================

func (suite *ServiceTestSuite) testGetItemNotFound(t *testing.T) {
	svc, _ := suite.NewService(t)

	_, err := svc.GetItem(testContext(), 42)
	require.Error(t, err)
	assert.True(t, remote.IsNotFound(err), "got %v", err)
}

func (suite *ServiceTestSuite) testGetItemDevice(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")

	rec, err := svc.GetItem(testContext(), devID)
	require.NoError(t, err)
	assert.Equal(t, "Phone", rec.Name)
	assert.Equal(t, remote.CategoryDevice, rec.Category)
	assert.Equal(t, devID, rec.DeviceID)
	assert.Equal(t, int64(0), rec.ParentID)
}

func (suite *ServiceTestSuite) testCreateFolder(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")

	id := mustCreateFolder(t, svc, devID, "docs")

	rec, err := svc.GetItem(testContext(), id)
	require.NoError(t, err)
	assert.Equal(t, "docs", rec.Name)
	assert.Equal(t, devID, rec.ParentID)
	assert.Equal(t, devID, rec.DeviceID)
	assert.Equal(t, remote.CategoryFolder, rec.Category)
	assert.Equal(t, "/docs", rec.FilePath)
	assert.False(t, rec.InRecycleBin)
}

func (suite *ServiceTestSuite) testCreateFolderIdempotent(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")

	first := mustCreateFolder(t, svc, devID, "docs")
	second := mustCreateFolder(t, svc, devID, "docs")
	assert.Equal(t, first, second)

	var docs int
	for _, r := range listAll(t, svc, devID) {
		if r.Name == "docs" {
			docs++
		}
	}
	assert.Equal(t, 1, docs)
}

func (suite *ServiceTestSuite) testCreateUnderRoot(t *testing.T) {
	svc, _ := suite.NewService(t)

	_, err := svc.CreateItem(testContext(), "NewDevice", 0, 0, checksum.Folder)
	assert.Error(t, err)
}

func (suite *ServiceTestSuite) testNestedPartialPath(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")

	a := mustCreateFolder(t, svc, devID, "a")
	b := mustCreateFolder(t, svc, a, "b")

	rec, err := svc.GetItem(testContext(), b)
	require.NoError(t, err)
	assert.Equal(t, "/a/b", rec.FilePath, "partial path omits the device name")
}

func (suite *ServiceTestSuite) testUploadAuthorization(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")

	auth, err := svc.GetUploadAuthorization(testContext(), devID)
	require.NoError(t, err)
	assert.NotEmpty(t, auth.BaseURL)
	assert.NotEmpty(t, auth.KeyPrefix)
	assert.Equal(t, byte('/'), auth.KeyPrefix[len(auth.KeyPrefix)-1])
	assert.NotEmpty(t, auth.Fields)
}

// ============================================================================
// Listing
// ============================================================================

func (suite *ServiceTestSuite) testRootListsDevices(t *testing.T) {
	svc, seed := suite.NewService(t)
	seed.AddDevice("Phone")
	seed.AddDevice("Laptop")

	recs := listAll(t, svc, 0)
	assert.Equal(t, []string{"Phone", "Laptop"}, names(recs))
	for _, r := range recs {
		assert.Equal(t, remote.CategoryDevice, r.Category)
	}
}

func (suite *ServiceTestSuite) testDeviceHasRecycleBin(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")

	var bins int
	for _, r := range listAll(t, svc, devID) {
		if r.Category == remote.CategoryRecycleBin {
			bins++
			assert.Equal(t, devID, r.DeviceID)
		}
	}
	assert.Equal(t, 1, bins)
}

func (suite *ServiceTestSuite) testPaginationComplete(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")
	folderID := mustCreateFolder(t, svc, devID, "many")

	var want []string
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("f%02d", i)
		mustCreateFolder(t, svc, folderID, name)
		want = append(want, name)
	}

	assert.Equal(t, want, names(listAll(t, svc, folderID)), "all pages in service order")
}

func (suite *ServiceTestSuite) testListingUnknownParent(t *testing.T) {
	svc, _ := suite.NewService(t)

	_, _, err := svc.GetChildren(testContext(), 4242, "")
	assert.Error(t, err)
}

// ============================================================================
// Mutations
// ============================================================================

func (suite *ServiceTestSuite) testRename(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")
	id := mustCreateFolder(t, svc, devID, "old")

	newID, err := svc.RenameItem(testContext(), id, "new")
	require.NoError(t, err)
	assert.Equal(t, id, newID)

	rec, err := svc.GetItem(testContext(), id)
	require.NoError(t, err)
	assert.Equal(t, "new", rec.Name)
	assert.Equal(t, "/new", rec.FilePath)
}

func (suite *ServiceTestSuite) testRenameConflict(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")
	id := mustCreateFolder(t, svc, devID, "a")
	mustCreateFolder(t, svc, devID, "b")

	_, err := svc.RenameItem(testContext(), id, "b")
	assert.Error(t, err)
}

func (suite *ServiceTestSuite) testMove(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")
	src := mustCreateFolder(t, svc, devID, "src")
	dst := mustCreateFolder(t, svc, devID, "dst")
	child := mustCreateFolder(t, svc, src, "child")

	_, err := svc.MoveItem(testContext(), child, dst)
	require.NoError(t, err)

	rec, err := svc.GetItem(testContext(), child)
	require.NoError(t, err)
	assert.Equal(t, dst, rec.ParentID)
	assert.Equal(t, "/dst/child", rec.FilePath)

	assert.Empty(t, listAll(t, svc, src))
	assert.Equal(t, []string{"child"}, names(listAll(t, svc, dst)))
}

func (suite *ServiceTestSuite) testMoveBelowItself(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")
	a := mustCreateFolder(t, svc, devID, "a")
	b := mustCreateFolder(t, svc, devID, "b")

	_, err := svc.MoveItem(testContext(), a, b)
	require.NoError(t, err)

	_, err = svc.MoveItem(testContext(), b, a)
	assert.Error(t, err, "an item cannot be moved below itself")
}

func (suite *ServiceTestSuite) testDelete(t *testing.T) {
	svc, seed := suite.NewService(t)
	devID := seed.AddDevice("Phone")
	folder := mustCreateFolder(t, svc, devID, "docs")
	victim := mustCreateFolder(t, svc, folder, "old")

	require.NoError(t, svc.DeleteItem(testContext(), victim))

	assert.Empty(t, listAll(t, svc, folder))

	rec, err := svc.GetItem(testContext(), victim)
	require.NoError(t, err, "soft delete keeps the item")
	assert.True(t, rec.InRecycleBin)

	parent, err := svc.GetItem(testContext(), rec.ParentID)
	require.NoError(t, err)
	assert.Equal(t, remote.CategoryRecycleBin, parent.Category)
	assert.Equal(t, devID, parent.DeviceID)
}

func (suite *ServiceTestSuite) testDeleteNotFound(t *testing.T) {
	svc, _ := suite.NewService(t)

	err := svc.DeleteItem(testContext(), 4242)
	assert.True(t, remote.IsNotFound(err), "got %v", err)
}
