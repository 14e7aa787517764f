package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFolderService_CreateFolder(t *testing.T) {
	folderRepo := &MockFolderRepository{}
	svc := NewFolderService(folderRepo)

	folderRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.Folder) bool {
		return f.OrgID == "org-1" && f.Name == "Launch research"
	})).Return(nil)

	folder, err := svc.CreateFolder(context.Background(), "org-1", "Launch research")

	require.NoError(t, err)
	assert.Equal(t, "Launch research", folder.Name)
	assert.False(t, folder.IsStale())
}

func TestFolderService_CreateFolder_RequiresName(t *testing.T) {
	svc := NewFolderService(&MockFolderRepository{})

	_, err := svc.CreateFolder(context.Background(), "org-1", "")

	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}

func TestFolderService_RecomputeStale(t *testing.T) {
	folderRepo := &MockFolderRepository{}
	svc := NewFolderService(folderRepo)
	ctx := context.Background()

	staleAt := time.Now().UTC()
	folderRepo.On("ListStale", mock.Anything, 10).Return([]*domain.Folder{
		{ID: "folder-1", OrgID: "org-1", StaleAt: &staleAt},
		{ID: "folder-2", OrgID: "org-1", StaleAt: &staleAt},
	}, nil)

	folderRepo.On("MemberChunkEmbeddings", mock.Anything, "folder-1").Return([][]float32{
		{1, 3},
		{3, 5},
	}, nil)
	folderRepo.On("SetEmbedding", mock.Anything, "folder-1", []float32{2, 4}, staleAt).Return(nil)

	// A failing folder is skipped; the rest of the batch still recomputes.
	folderRepo.On("MemberChunkEmbeddings", mock.Anything, "folder-2").Return(nil, errors.New("query timeout"))

	recomputed, err := svc.RecomputeStale(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, recomputed)
	folderRepo.AssertNotCalled(t, "SetEmbedding", mock.Anything, "folder-2", mock.Anything, mock.Anything)
}

func TestFolderService_RecomputeStale_EmptyFolder(t *testing.T) {
	folderRepo := &MockFolderRepository{}
	svc := NewFolderService(folderRepo)

	staleAt := time.Now().UTC()
	folderRepo.On("ListStale", mock.Anything, 5).Return([]*domain.Folder{
		{ID: "folder-1", OrgID: "org-1", StaleAt: &staleAt},
	}, nil)
	folderRepo.On("MemberChunkEmbeddings", mock.Anything, "folder-1").Return([][]float32{}, nil)
	// An empty folder clears to a nil aggregate rather than staying stale.
	folderRepo.On("SetEmbedding", mock.Anything, "folder-1", []float32(nil), staleAt).Return(nil)

	recomputed, err := svc.RecomputeStale(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 1, recomputed)
	folderRepo.AssertExpectations(t)
}

func TestMeanVector(t *testing.T) {
	assert.Nil(t, meanVector(nil))
	assert.Nil(t, meanVector([][]float32{}))

	mean := meanVector([][]float32{{2, 4, 6}})
	assert.Equal(t, []float32{2, 4, 6}, mean)

	mean = meanVector([][]float32{{1, 1}, {3, 5}})
	assert.Equal(t, []float32{2, 3}, mean)

	// Mismatched dimensions are ignored instead of corrupting the mean.
	mean = meanVector([][]float32{{2, 2}, {1, 2, 3}})
	assert.Equal(t, []float32{2, 2}, mean)
}
