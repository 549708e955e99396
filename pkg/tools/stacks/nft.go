package stacks

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
	"github.com/germanamz/blasko/pkg/upstream/hiro"
)

const nftHoldingsLimit = 200

var tokenIDCleaner = strings.NewReplacer("u", "", "'", "", "(", "", ")", "")

type getNftGalleryInput struct {
	Address string `json:"address"`
}

type nftMetadata struct {
	Name       string           `json:"name"`
	ImageURI   string           `json:"imageUri,omitempty"`
	Attributes []hiro.Attribute `json:"attributes"`
}

type nftItem struct {
	TokenID     string       `json:"tokenId"`
	AssetID     string       `json:"assetId"`
	BlockHeight int64        `json:"blockHeight"`
	Metadata    *nftMetadata `json:"metadata,omitempty"`
}

type collectionMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURI    string `json:"imageUri,omitempty"`
}

type nftCollection struct {
	ContractID string              `json:"contractId"`
	AssetName  string              `json:"assetName"`
	NFTs       []*nftItem          `json:"nfts"`
	Metadata   *collectionMetadata `json:"metadata,omitempty"`
}

type nftGalleryOutput struct {
	Address          string           `json:"address"`
	TotalNFTs        int              `json:"totalNfts"`
	CollectionsCount int              `json:"collectionsCount"`
	Collections      []*nftCollection `json:"collections"`
}

func (s *Stacks) getNftGalleryTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "getNftGallery",
		Description: `Display a user's NFT collection in a visual gallery with images. Use this when the user asks about "my NFTs", "show my NFTs", "my NFT collection", "NFT gallery", or anything specifically about viewing their NFTs.`,
		InputSchema: object(map[string]*jsonschema.Schema{
			"address": str("The Stacks address (starts with SP or ST). Use the connected wallet address from the system prompt when the user asks about their own NFTs."),
		}, "address"),
		Handler: toolbox.Typed(s.getNftGallery),
	}
}

func (s *Stacks) getNftGallery(ctx context.Context, in getNftGalleryInput) (any, error) {
	if in.Address == "" {
		return nil, toolerr.Validation("address", "no wallet address provided; connect a wallet first")
	}

	holdings, err := s.hiro.NFTHoldings(ctx, in.Address, nftHoldingsLimit)
	if err != nil {
		return nil, err
	}

	collections := groupHoldings(holdings.Results)
	s.enrichCollections(ctx, collections)

	return nftGalleryOutput{
		Address:          in.Address,
		TotalNFTs:        len(holdings.Results),
		CollectionsCount: len(collections),
		Collections:      collections,
	}, nil
}

// groupHoldings groups holdings by contract in order of first appearance.
func groupHoldings(holdings []hiro.NFTHolding) []*nftCollection {
	collections := []*nftCollection{}
	byContract := make(map[string]*nftCollection)

	for _, h := range holdings {
		contractID, assetName, _ := strings.Cut(h.AssetIdentifier, "::")

		c, ok := byContract[contractID]
		if !ok {
			c = &nftCollection{ContractID: contractID, AssetName: assetName, NFTs: []*nftItem{}}
			byContract[contractID] = c
			collections = append(collections, c)
		}

		c.NFTs = append(c.NFTs, &nftItem{
			TokenID:     h.Value.Repr,
			AssetID:     h.AssetIdentifier,
			BlockHeight: h.BlockHeight,
		})
	}
	return collections
}

// enrichCollections attaches collection metadata, then token metadata for
// the first MaxItems tokens of every collection whose metadata loaded.
// Requests share one semaphore of MaxFanout slots and each runs under
// ItemTimeout. Failures leave the entry without metadata.
func (s *Stacks) enrichCollections(ctx context.Context, collections []*nftCollection) {
	sem := semaphore.NewWeighted(int64(s.fanout.MaxFanout))

	s.fanOut(ctx, sem, len(collections), func(ctx context.Context, i int) {
		c := collections[i]

		md, err := s.hiro.CollectionMetadata(ctx, c.ContractID)
		if err != nil {
			s.log.Debug("collection metadata unavailable", zap.String("contract", c.ContractID), zap.Error(err))
			return
		}

		c.Metadata = &collectionMetadata{
			Name:        firstNonEmpty(md.Name, c.AssetName),
			Description: md.Description,
			ImageURI:    firstNonEmpty(md.ImageURI, md.ImageThumbnailURI),
		}
	})

	type job struct {
		contractID string
		item       *nftItem
	}

	var jobs []job
	for _, c := range collections {
		if c.Metadata == nil {
			continue
		}
		for _, item := range c.NFTs[:min(len(c.NFTs), s.fanout.MaxItems)] {
			jobs = append(jobs, job{contractID: c.ContractID, item: item})
		}
	}

	s.fanOut(ctx, sem, len(jobs), func(ctx context.Context, i int) {
		j := jobs[i]
		tokenID := tokenIDCleaner.Replace(j.item.TokenID)

		md, err := s.hiro.TokenMetadata(ctx, j.contractID, tokenID)
		if err != nil {
			s.log.Debug("token metadata unavailable",
				zap.String("contract", j.contractID), zap.String("token", tokenID), zap.Error(err))
			return
		}

		attrs := md.Attributes
		if attrs == nil {
			attrs = []hiro.Attribute{}
		}
		j.item.Metadata = &nftMetadata{
			Name:       md.Name,
			ImageURI:   firstNonEmpty(md.ImageURI, md.ImageThumbnailURI, md.ImageCanonicalURI),
			Attributes: attrs,
		}
	})
}

// fanOut runs fn for 0..n-1 with at most sem's weight in flight, each call
// under its own ItemTimeout. It stops scheduling once ctx is done and
// returns after every started call finished.
func (s *Stacks) fanOut(ctx context.Context, sem *semaphore.Weighted, n int, fn func(ctx context.Context, i int)) {
	var g errgroup.Group

	for i := range n {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			itemCtx, cancel := context.WithTimeout(ctx, s.fanout.ItemTimeout)
			defer cancel()

			fn(itemCtx, i)
			return nil
		})
	}

	_ = g.Wait()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
